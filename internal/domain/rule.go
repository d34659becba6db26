package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConditionType string

const (
	ConditionAmount          ConditionType = "amount"
	ConditionCurrency        ConditionType = "currency"
	ConditionTransactionType ConditionType = "transaction_type"
	ConditionTime            ConditionType = "time"
	ConditionUserRole        ConditionType = "user_role"
	ConditionCustom          ConditionType = "custom"
)

type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorContains    Operator = "contains"
	// OperatorGreaterThanOrEqual exists so a compiled threshold tier can
	// express its inclusive lower bound; it follows the same numeric-only
	// validation as greater_than.
	OperatorGreaterThanOrEqual Operator = "greater_than_or_equal"
)

type Condition struct {
	Type     ConditionType `json:"type"`
	Operator Operator      `json:"operator"`
	Value    interface{}   `json:"value"`
	Field    string        `json:"field,omitempty"`
}

// PolicyRule is the administered unit of policy. Compiled built-ins carry
// system-generated ids (default-<currency>-<index>, transaction-type-<type>);
// custom rules get custom-<timestamp>-<random> via NewCustomRuleID.
// A rule with zero conditions always matches.
type PolicyRule struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Enabled      bool        `json:"enabled"`
	Priority     int         `json:"priority"`
	Conditions   []Condition `json:"conditions"`
	Actions      ActionList  `json:"actions"`
	CreatedAt    time.Time   `json:"created_at"`
	LastModified time.Time   `json:"last_modified"`
	CreatedBy    string      `json:"created_by"`
	ModifiedBy   string      `json:"modified_by"`
}

func NewCustomRuleID() string {
	return fmt.Sprintf("custom-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (r *PolicyRule) Clone() *PolicyRule {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Conditions = make([]Condition, len(r.Conditions))
	copy(clone.Conditions, r.Conditions)
	clone.Actions = make(ActionList, len(r.Actions))
	copy(clone.Actions, r.Actions)
	return &clone
}

type ActionKind string

const (
	ActionRequireApprovers ActionKind = "require_approvers"
	ActionAddApprovers     ActionKind = "add_approvers"
	ActionSetPriority      ActionKind = "set_priority"
	ActionSendNotification ActionKind = "send_notification"
	ActionBlockTransaction ActionKind = "block_transaction"
)

// Action is decoded from its {type, parameters} wire envelope exactly once,
// at rule-load time. Evaluation switches on the concrete type and never
// inspects loose parameter maps.
type Action interface {
	Kind() ActionKind
}

type RequireApprovers struct {
	Approvers []string
}

func (RequireApprovers) Kind() ActionKind { return ActionRequireApprovers }

type AddApprovers struct {
	Approvers []string
}

func (AddApprovers) Kind() ActionKind { return ActionAddApprovers }

type SetPriority struct {
	Priority string
}

func (SetPriority) Kind() ActionKind { return ActionSetPriority }

type SendNotification struct {
	Message string
}

func (SendNotification) Kind() ActionKind { return ActionSendNotification }

type BlockTransaction struct{}

func (BlockTransaction) Kind() ActionKind { return ActionBlockTransaction }

type actionEnvelope struct {
	Type       ActionKind             `json:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

func DecodeAction(kind ActionKind, params map[string]interface{}) (Action, error) {
	switch kind {
	case ActionRequireApprovers:
		approvers, err := stringListParam(params, "approvers")
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", kind, err)
		}
		return RequireApprovers{Approvers: approvers}, nil
	case ActionAddApprovers:
		approvers, err := stringListParam(params, "approvers")
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", kind, err)
		}
		return AddApprovers{Approvers: approvers}, nil
	case ActionSetPriority:
		priority, err := stringParam(params, "priority")
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", kind, err)
		}
		return SetPriority{Priority: priority}, nil
	case ActionSendNotification:
		message, err := stringParam(params, "message")
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", kind, err)
		}
		return SendNotification{Message: message}, nil
	case ActionBlockTransaction:
		return BlockTransaction{}, nil
	default:
		return nil, fmt.Errorf("unknown action type: %s", kind)
	}
}

func EncodeAction(a Action) (ActionKind, map[string]interface{}) {
	switch a := a.(type) {
	case RequireApprovers:
		return a.Kind(), map[string]interface{}{"approvers": a.Approvers}
	case AddApprovers:
		return a.Kind(), map[string]interface{}{"approvers": a.Approvers}
	case SetPriority:
		return a.Kind(), map[string]interface{}{"priority": a.Priority}
	case SendNotification:
		return a.Kind(), map[string]interface{}{"message": a.Message}
	default:
		return a.Kind(), nil
	}
}

// ActionList carries the {type, parameters} envelope encoding so rule
// snapshots stay replayable across versions.
type ActionList []Action

func (l ActionList) MarshalJSON() ([]byte, error) {
	envelopes := make([]actionEnvelope, 0, len(l))
	for _, a := range l {
		kind, params := EncodeAction(a)
		envelopes = append(envelopes, actionEnvelope{Type: kind, Parameters: params})
	}
	return json.Marshal(envelopes)
}

func (l *ActionList) UnmarshalJSON(data []byte) error {
	var envelopes []actionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return fmt.Errorf("invalid action list: %w", err)
	}
	actions := make(ActionList, 0, len(envelopes))
	for _, env := range envelopes {
		action, err := DecodeAction(env.Type, env.Parameters)
		if err != nil {
			return err
		}
		actions = append(actions, action)
	}
	*l = actions
	return nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	raw, exists := params[key]
	if !exists {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, raw)
	}
	return value, nil
}

func stringListParam(params map[string]interface{}, key string) ([]string, error) {
	raw, exists := params[key]
	if !exists {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	switch value := raw.(type) {
	case []string:
		return append([]string(nil), value...), nil
	case []interface{}:
		list := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q must contain strings, got %T", key, item)
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("parameter %q must be a string list, got %T", key, raw)
	}
}
