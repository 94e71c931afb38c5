// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Command cleanup is the Lambda entry point the expiry schedule invokes.
// It runs the teardown saga for the preview named in the event and reports
// a 200 on full success, a 207 multi-status when some steps failed, and a
// 400 when the event carries no preview id.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/cleanup"
	"github.com/mikelane/tempus/internal/compute"
	"github.com/mikelane/tempus/internal/config"
	"github.com/mikelane/tempus/internal/logging"
	"github.com/mikelane/tempus/internal/routing"
	"github.com/mikelane/tempus/internal/schedule"
	"github.com/mikelane/tempus/internal/store"
)

// event is the payload the EventBridge rule delivers.
type event struct {
	PreviewID string `json:"preview_id"`
}

// response mirrors the proxy-style shape the invoking infrastructure
// expects: a status code plus a JSON-encoded body.
type response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type handler struct {
	saga *cleanup.Saga
	log  *zap.Logger
}

func newHandler(ctx context.Context, cfg config.Config, log *zap.Logger) (*handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	st := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.TableName)
	cp := compute.NewECS(ecs.NewFromConfig(awsCfg), compute.ECSConfig{
		ClusterName:          cfg.ClusterName,
		TaskExecutionRoleArn: cfg.TaskExecutionRoleArn,
		TaskRoleArn:          cfg.TaskRoleArn,
		SecurityGroupID:      cfg.SecurityGroupID,
		SubnetIDs:            cfg.SubnetIDs,
		ContainerImage:       cfg.ContainerImage,
		LogGroupName:         cfg.LogGroupName,
		Region:               cfg.Region,
	})
	rt := routing.NewELB(elbv2.NewFromConfig(awsCfg), routing.ELBConfig{
		LoadBalancerArn: cfg.ALBArn,
		ListenerArn:     cfg.ALBListenerArn,
	})
	sc := schedule.NewEventBridge(
		eventbridge.NewFromConfig(awsCfg),
		awslambda.NewFromConfig(awsCfg),
		sts.NewFromConfig(awsCfg),
		schedule.EventBridgeConfig{
			CleanupFunctionArn: cfg.CleanupFunctionArn,
			Region:             cfg.Region,
		},
		log,
	)

	saga := cleanup.NewSaga(st, cp, rt, sc, cleanup.Config{
		DrainPollInterval: cfg.DrainPollInterval,
		DrainTimeout:      cfg.DrainTimeout,
	}, log)

	return &handler{saga: saga, log: log}, nil
}

func (h *handler) handle(ctx context.Context, evt event) (response, error) {
	if evt.PreviewID == "" {
		h.log.Error("event carries no preview_id")
		return jsonResponse(http.StatusBadRequest, map[string]any{
			"error": "preview_id is required",
		}), nil
	}

	h.log.Info("starting cleanup", zap.String("preview_id", evt.PreviewID))
	outcome := h.saga.Run(ctx, evt.PreviewID)

	if outcome.AlreadyCleaned {
		return jsonResponse(http.StatusOK, map[string]any{
			"message":    "preview not found, may already be cleaned up",
			"preview_id": evt.PreviewID,
		}), nil
	}

	if failures := outcome.Failures(); len(failures) > 0 {
		messages := make([]string, 0, len(failures))
		for _, f := range failures {
			messages = append(messages, fmt.Sprintf("%s: %v", f.Step, f.Err))
		}
		return jsonResponse(http.StatusMultiStatus, map[string]any{
			"message":    "cleanup completed with errors",
			"preview_id": evt.PreviewID,
			"errors":     messages,
		}), nil
	}

	return jsonResponse(http.StatusOK, map[string]any{
		"message":    "cleanup completed successfully",
		"preview_id": evt.PreviewID,
	}), nil
}

func jsonResponse(code int, body map[string]any) response {
	encoded, err := json.Marshal(body)
	if err != nil {
		return response{StatusCode: code, Body: `{}`}
	}
	return response{StatusCode: code, Body: string(encoded)}
}

func main() {
	log := logging.New()
	defer log.Sync() //nolint:errcheck // stdout sync failures are benign

	h, err := newHandler(context.Background(), config.Load(), log)
	if err != nil {
		log.Fatal("failed to initialize cleanup handler", zap.Error(err))
	}
	lambda.Start(h.handle)
}
