package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name for gonuget-vs operations
const TracerName = "github.com/willibrandon/gonuget-vs"

// Common attribute keys
const (
	AttrPackageID      = attribute.Key("nuget.package.id")
	AttrPackageVersion = attribute.Key("nuget.package.version")
	AttrProject        = attribute.Key("nuget.project")
	AttrOperation      = attribute.Key("nuget.operation")
	AttrOperationID    = attribute.Key("nuget.operation.id")
	AttrPackageCount   = attribute.Key("nuget.package.count")
)

// StartPackageOperationSpan starts a span for an install, uninstall,
// update or restore of packageID in project (empty for solution level).
func StartPackageOperationSpan(ctx context.Context, operation, operationID, packageID, version, project string) (context.Context, trace.Span) {
	return StartSpan(ctx, "package."+operation,
		trace.WithAttributes(
			AttrOperation.String(operation),
			AttrOperationID.String(operationID),
			AttrPackageID.String(packageID),
			AttrPackageVersion.String(version),
			AttrProject.String(project),
		),
	)
}

// StartPreinstallSpan starts a span for a preinstalled package batch.
func StartPreinstallSpan(ctx context.Context, project, repositoryPath string, packageCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, "package.preinstall",
		trace.WithAttributes(
			AttrOperation.String("preinstall"),
			AttrProject.String(project),
			attribute.String("repository.path", repositoryPath),
			AttrPackageCount.Int(packageCount),
		),
	)
}

// EndSpanWithError ends a span with an error status
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// OperationTimer records duration and outcome of one package operation.
type OperationTimer struct {
	operation string
	start     time.Time
}

// StartOperationTimer starts timing operation.
func StartOperationTimer(operation string) *OperationTimer {
	return &OperationTimer{operation: operation, start: time.Now()}
}

// Stop records the result ("success", "failure" or "noop").
func (t *OperationTimer) Stop(result string) {
	PackageOperationDuration.WithLabelValues(t.operation).Observe(time.Since(t.start).Seconds())
	PackageOperationsTotal.WithLabelValues(t.operation, result).Inc()
}

// ResultOf maps an error to a metric result label.
func ResultOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
