package registry

import (
	"log/slog"
	"net/http"

	"github.com/weftwork/weft/pkg/nodes/approval"
	"github.com/weftwork/weft/pkg/nodes/condition"
	"github.com/weftwork/weft/pkg/nodes/form"
	"github.com/weftwork/weft/pkg/nodes/httprequest"
	nodelog "github.com/weftwork/weft/pkg/nodes/log"
	ratelimitnode "github.com/weftwork/weft/pkg/nodes/ratelimit"
	"github.com/weftwork/weft/pkg/nodes/retry"
	"github.com/weftwork/weft/pkg/nodes/subflow"
	"github.com/weftwork/weft/pkg/nodes/transform"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/ratelimit"
)

// Dependencies carries the collaborators stateful node factories need. Nil
// entries skip the factories that require them.
type Dependencies struct {
	Approvals  protocol.ApprovalService
	Forms      protocol.FormService
	Executions protocol.ExecutionService
	Limiter    *ratelimit.Limiter
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// RegisterDefaults registers every built-in node type whose dependencies are
// available.
func (r *Registry) RegisterDefaults(deps Dependencies) error {
	r.RegisterNode(nodelog.NewLogNodeFactory())
	r.RegisterNode(condition.NewConditionNodeFactory())
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(retry.NewRetryNodeFactory())

	httpFactory, err := httprequest.NewHTTPRequestNodeFactory(deps.Logger, deps.HTTPClient)
	if err != nil {
		return err
	}

	r.RegisterNode(httpFactory)
	r.RegisterNode(ratelimitnode.NewRateLimitNodeFactory(deps.Limiter))

	if deps.Approvals != nil {
		r.RegisterNode(approval.NewApprovalNodeFactory(deps.Approvals))
	}

	if deps.Forms != nil {
		r.RegisterNode(form.NewFormNodeFactory(deps.Forms))
	}

	if deps.Executions != nil {
		r.RegisterNode(subflow.NewSubflowNodeFactory(deps.Executions))
	}

	return nil
}
