package odoo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// executeRPC runs execute_kw and returns early when ctx is done. The pending
// call keeps running in its goroutine; its reply is discarded.
func (c *Client) executeRPC(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, reply interface{}) error {
	uid, rpcClient, err := c.getConnection(ctx)
	if err != nil {
		c.logger.Error("Failed to get Odoo connection for RPC call",
			zap.Error(err),
			zap.String("model", model),
			zap.String("method", method),
		)
		return err
	}

	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}
	callArgs := []interface{}{c.db, uid, c.password, model, method, args, kwargs}

	callChan := make(chan error, 1)
	go func() {
		callChan <- rpcClient.Call("execute_kw", callArgs, reply)
	}()

	select {
	case <-ctx.Done():
		c.logger.Error("Odoo RPC call cancelled",
			zap.Error(ctx.Err()),
			zap.String("model", model),
			zap.String("method", method),
		)
		return ctx.Err()
	case err = <-callChan:
		if err != nil {
			c.logger.Error("Failed to execute Odoo RPC call",
				zap.Error(err),
				zap.String("model", model),
				zap.String("method", method),
			)
			return parseRPCError(fmt.Errorf("failed to call Odoo method '%s' on model '%s': %w", method, model, err))
		}
	}
	return nil
}

// Search returns the ids matching domain.
func (c *Client) Search(ctx context.Context, model Model, domain Domain, options ...*Options) ([]int64, error) {
	c.logger.Debug("Performing Odoo search",
		zap.String("model", string(model)),
		zap.Any("domain", domain),
		zap.String("op", "Search"),
	)

	var ids []int64
	err := c.executeRPC(ctx, string(model), "search", []interface{}{domain.ToRPC()}, firstOptions(options).ToRPC(), &ids)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Odoo search completed",
		zap.String("model", string(model)),
		zap.Int("results", len(ids)),
		zap.String("op", "Search"),
	)
	return ids, nil
}

// SearchRead returns the requested fields of every record matching domain.
// An empty result is not an error.
func (c *Client) SearchRead(ctx context.Context, model Model, domain Domain, fields Fields, options ...*Options) ([]Record, error) {
	c.logger.Debug("Performing Odoo search_read",
		zap.String("model", string(model)),
		zap.Any("domain", domain),
		zap.Strings("fields", fields),
		zap.String("op", "SearchRead"),
	)

	kwargs := firstOptions(options).ToRPC()
	if len(fields) > 0 {
		kwargs["fields"] = fields.ToRPC()
	}

	var raw []map[string]interface{}
	if err := c.executeRPC(ctx, string(model), "search_read", []interface{}{domain.ToRPC()}, kwargs, &raw); err != nil {
		return nil, err
	}

	records := make([]Record, len(raw))
	for i, r := range raw {
		records[i] = Record(r)
	}

	c.logger.Debug("Odoo search_read completed",
		zap.String("model", string(model)),
		zap.Int("results", len(records)),
		zap.String("op", "SearchRead"),
	)
	return records, nil
}

// SearchReadOne returns the first record matching domain, or nil when none does.
func (c *Client) SearchReadOne(ctx context.Context, model Model, domain Domain, fields Fields) (Record, error) {
	records, err := c.SearchRead(ctx, model, domain, fields, &Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Create creates one record per element of values in a single call and returns
// their ids in order. Odoo runs the call in one database transaction.
func (c *Client) Create(ctx context.Context, model Model, values []Data) ([]int64, error) {
	if len(values) == 0 {
		return nil, nil
	}

	c.logger.Debug("Performing Odoo batch create",
		zap.String("model", string(model)),
		zap.Int("count", len(values)),
		zap.String("op", "Create"),
	)

	rpcValues := make([]interface{}, len(values))
	for i, v := range values {
		rpcValues[i] = v.ToRPC()
	}

	var ids []int64
	if err := c.executeRPC(ctx, string(model), "create", []interface{}{rpcValues}, nil, &ids); err != nil {
		return nil, err
	}
	if len(ids) != len(values) {
		return nil, fmt.Errorf("%w: create on %s returned %d ids for %d records", ErrInvalidResponse, model, len(ids), len(values))
	}

	c.logger.Info("Odoo batch create completed",
		zap.String("model", string(model)),
		zap.Int64s("ids", ids),
		zap.String("op", "Create"),
	)
	return ids, nil
}
