// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package services

import (
	"context"
	"errors"
	"fmt"
)

// Runner is a blocking component that stops when its context is canceled.
type Runner interface {
	Run(ctx context.Context) error
}

// ConsumerService supervises a query log consumer.
//
// A subscription that ends while ctx is still live is reported as an error
// so the supervisor resubscribes.
type ConsumerService struct {
	consumer Runner
	name     string
}

// NewConsumerService wraps consumer under the given service name.
func NewConsumerService(name string, consumer Runner) *ConsumerService {
	if name == "" {
		name = "querylog-consumer"
	}
	return &ConsumerService{consumer: consumer, name: name}
}

// Serve implements suture.Service.
func (c *ConsumerService) Serve(ctx context.Context) error {
	err := c.consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return fmt.Errorf("%s: subscription closed", c.name)
}

func (c *ConsumerService) String() string {
	return c.name
}
