package registry

import (
	"github.com/dukex/aiflow/pkg/nodes/aimodel"
	"github.com/dukex/aiflow/pkg/nodes/condition"
	"github.com/dukex/aiflow/pkg/nodes/output"
	"github.com/dukex/aiflow/pkg/nodes/post"
	"github.com/dukex/aiflow/pkg/nodes/trigger"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(trigger.NewTriggerNodeFactory())
	r.RegisterNode(aimodel.NewAIModelNodeFactory())
	r.RegisterNode(output.NewOutputNodeFactory())
	r.RegisterNode(post.NewPostNodeFactory())
	r.RegisterNode(condition.NewConditionNodeFactory())
}
