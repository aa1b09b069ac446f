package odoo

import (
	"context"

	"go.uber.org/zap"
)

// CallMethod calls a public model method, such as action_confirm, on ids.
func (c *Client) CallMethod(ctx context.Context, model Model, method string, ids []int64, args ...interface{}) (interface{}, error) {
	c.logger.Debug("Performing Odoo method call",
		zap.String("model", string(model)),
		zap.String("method", method),
		zap.Int64s("ids", ids),
		zap.String("op", "CallMethod"),
	)

	var result interface{}
	callArgs := append([]interface{}{ids}, args...)
	if err := c.executeRPC(ctx, string(model), method, callArgs, nil, &result); err != nil {
		return nil, err
	}

	c.logger.Info("Odoo method call completed",
		zap.String("model", string(model)),
		zap.String("method", method),
		zap.String("op", "CallMethod"),
	)
	return result, nil
}
