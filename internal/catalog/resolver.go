// Package catalog discovers which Glue table backs the usage report.
package catalog

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"

	"usage-report/internal/domain"
)

// GlueAPI is the subset of the Glue client the resolver needs.
type GlueAPI interface {
	GetTables(ctx context.Context, params *glue.GetTablesInput, optFns ...func(*glue.Options)) (*glue.GetTablesOutput, error)
}

// Resolver resolves the backing table name, preferring a configured override
// and falling back to the first table listed in the Glue database.
type Resolver struct {
	client   GlueAPI
	database string
	override string
	logger   *slog.Logger
}

// NewResolver creates a Resolver. An empty override enables discovery.
func NewResolver(client GlueAPI, database, override string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, database: database, override: override, logger: logger}
}

// Resolve returns the table name to query. When no override is configured it
// lists the Glue database bounded to one result. A listing failure and an
// empty listing collapse to the same NoResourceFoundError: either way there
// is nothing to query until the crawler has run or an override is set.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if r.override != "" {
		return r.override, nil
	}

	out, err := r.client.GetTables(ctx, &glue.GetTablesInput{
		DatabaseName: aws.String(r.database),
		MaxResults:   aws.Int32(1),
	})
	if err != nil {
		r.logger.Debug("glue table listing failed", "database", r.database, "error", err)
	} else if len(out.TableList) > 0 {
		return aws.ToString(out.TableList[0].Name), nil
	}

	return "", domain.ErrNoResourceFound(
		"no tables found in Glue database %q; run the Glue crawler first or set GLUE_TABLE_NAME", r.database)
}
