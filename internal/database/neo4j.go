package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CypherRunner is the part of the Neo4j client the meal graph needs.
type CypherRunner interface {
	ExecuteRead(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) error
}

var _ CypherRunner = (*Neo4jClient)(nil)

// GraphConfig points at the optional meal graph. An empty URI disables it.
type GraphConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Enabled reports whether a graph database was configured.
func (c GraphConfig) Enabled() bool {
	return c.URI != ""
}

// Neo4jClient runs meal graph queries against a single database.
type Neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

// NewNeo4jClient connects to Neo4j and verifies the connection
func NewNeo4jClient(ctx context.Context, config GraphConfig, log *slog.Logger) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(verifyCtx)
		return nil, fmt.Errorf("meal graph at %s unreachable: %w", config.URI, err)
	}

	log = log.With("component", "graph", "database", config.Database)
	log.Info("connected to meal graph", "uri", config.URI)
	return &Neo4jClient{driver: driver, database: config.Database, log: log}, nil
}

// Close closes the Neo4j driver connection
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// ExecuteWrite runs a MERGE or DELETE against the leader.
func (c *Neo4jClient) ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) error {
	_, err := c.run(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
	return err
}

// ExecuteRead runs a read query and returns one map per record, keyed by column.
func (c *Neo4jClient) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	result, err := c.run(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, err
	}
	return flatten(result.Records), nil
}

func (c *Neo4jClient) run(ctx context.Context, query string, params map[string]interface{}, routing neo4j.ExecuteQueryConfigurationOption) (*neo4j.EagerResult, error) {
	started := time.Now()
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		routing)
	if err != nil {
		return nil, fmt.Errorf("cypher query failed: %w", err)
	}
	c.log.Debug("cypher", "took", time.Since(started), "records", len(result.Records))
	return result, nil
}

func flatten(records []*neo4j.Record) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		row := make(map[string]interface{}, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// Health checks the database connection health
func (c *Neo4jClient) Health(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("meal graph health check failed: %w", err)
	}
	return nil
}
