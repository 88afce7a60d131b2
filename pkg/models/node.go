package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NodeType identifies the executor responsible for a node.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAIModel   NodeType = "aiModel"
	NodeTypeOutput    NodeType = "output"
	NodeTypePost      NodeType = "post"
	NodeTypeCondition NodeType = "condition"
)

// NodeData is the per-kind configuration of a node. It is decoded once, when the
// workflow is loaded, into one of the concrete variants below.
type NodeData interface {
	Kind() NodeType
}

// Node is a single processing step of a workflow.
type Node struct {
	ID   string   `json:"id"   validate:"required"`
	Type NodeType `json:"type" validate:"required"`
	Data NodeData `json:"data" validate:"-"`

	// Executed and Output are annotated after each run.
	Executed bool `json:"executed,omitempty"`
	Output   any  `json:"output,omitempty"`
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Executed bool            `json:"executed,omitempty"`
	Output   any             `json:"output,omitempty"`
}

// UnmarshalJSON decodes the node and its kind-specific data.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON

	err := json.Unmarshal(b, &raw)
	if err != nil {
		return err
	}

	data, err := DecodeNodeData(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Data = data
	n.Executed = raw.Executed
	n.Output = raw.Output

	return nil
}

// DecodeNodeData decodes raw node configuration into the variant matching nodeType.
// Unknown node types keep their configuration as a RawData map.
func DecodeNodeData(nodeType NodeType, raw json.RawMessage) (NodeData, error) {
	var data NodeData

	switch nodeType {
	case NodeTypeTrigger:
		data = &TriggerData{}
	case NodeTypeAIModel:
		data = &AIModelData{}
	case NodeTypeOutput:
		data = &OutputData{}
	case NodeTypePost:
		data = &PostData{}
	case NodeTypeCondition:
		data = &ConditionData{}
	default:
		data = &RawData{NodeType: nodeType}
	}

	if len(raw) == 0 || string(raw) == "null" {
		return data, nil
	}

	err := json.Unmarshal(raw, data)
	if err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", nodeType, err)
	}

	return data, nil
}

// TriggerType selects how a trigger node produces the run's initial content.
type TriggerType string

const (
	TriggerTypeManual       TriggerType = "manual"
	TriggerTypeWebhook      TriggerType = "webhook"
	TriggerTypeGravityForms TriggerType = "gravityForms"
)

// WebhookKey names a value to extract from a webhook payload. Key is a
// '/'-separated path into the payload.
type WebhookKey struct {
	Key string `json:"key" validate:"required"`
}

type TriggerData struct {
	TriggerType TriggerType    `json:"triggerType,omitempty"   validate:"omitempty,oneof=manual webhook gravityForms"`
	Content     string         `json:"content,omitempty"`
	WebhookKeys []WebhookKey   `json:"webhookKeys,omitempty"   validate:"dive"`
	WebhookKey  string         `json:"webhookKey,omitempty"`
	Schema      map[string]any `json:"payloadSchema,omitempty"`
}

func (*TriggerData) Kind() NodeType { return NodeTypeTrigger }

// EffectiveTriggerType defaults to manual.
func (d *TriggerData) EffectiveTriggerType() TriggerType {
	if d.TriggerType == "" {
		return TriggerTypeManual
	}

	return d.TriggerType
}

// AIModelData configures a completion call. A nil Content means no prompt was
// configured; an empty one is sent as is.
type AIModelData struct {
	Content   *string  `json:"content,omitempty"`
	Model     string   `json:"model,omitempty"`
	ImageURLs []string `json:"imageUrls,omitempty" validate:"dive,required"`
}

func (*AIModelData) Kind() NodeType { return NodeTypeAIModel }

// OutputType selects the side effect of an output node.
type OutputType string

const (
	OutputTypeDisplay OutputType = "display"
	OutputTypeHTML    OutputType = "html"
	OutputTypeSave    OutputType = "save"
	OutputTypeWebhook OutputType = "webhook"
)

type OutputData struct {
	OutputType   OutputType  `json:"outputType,omitempty"`
	WebhookURL   string      `json:"webhookUrl,omitempty"   validate:"omitempty,url"`
	DelayEnabled bool        `json:"delayEnabled,omitempty"`
	DelayValue   DelayAmount `json:"delayValue,omitempty"   validate:"gte=0"`
	DelayUnit    string      `json:"delayUnit,omitempty"`
}

func (*OutputData) Kind() NodeType { return NodeTypeOutput }

// DelayAmount decodes from a JSON number or a numeric string. Anything else
// decodes to -1, which DelayUntil rejects when the node runs.
type DelayAmount int

func (d *DelayAmount) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))

	if raw == "null" {
		*d = 0

		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		raw = strings.TrimSpace(s)
		if raw == "" {
			*d = 0

			return nil
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value > math.MaxInt32 || value < math.MinInt32 {
		*d = -1

		return nil
	}

	*d = DelayAmount(value)

	return nil
}

// EffectiveOutputType defaults to display.
func (d *OutputData) EffectiveOutputType() OutputType {
	if d.OutputType == "" {
		return OutputTypeDisplay
	}

	return d.OutputType
}

type PostData struct {
	PostType      string            `json:"selectedPostType,omitempty"`
	PostStatus    string            `json:"postStatus,omitempty"       validate:"omitempty,oneof=publish draft pending private future"`
	FieldMappings map[string]string `json:"fieldMappings,omitempty"`
	ScheduledDate string            `json:"scheduledDate,omitempty"`
}

func (*PostData) Kind() NodeType { return NodeTypePost }

type ConditionData struct {
	Condition string `json:"condition" validate:"required"`
}

func (*ConditionData) Kind() NodeType { return NodeTypeCondition }

// RawData holds the configuration of a node whose type has no typed variant.
type RawData struct {
	NodeType NodeType       `json:"-"`
	Fields   map[string]any `json:"-"`
}

func (d *RawData) Kind() NodeType { return d.NodeType }

func (d *RawData) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &d.Fields)
}

func (d *RawData) MarshalJSON() ([]byte, error) {
	if d.Fields == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(d.Fields)
}
