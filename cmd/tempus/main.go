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

// Command tempus serves the preview environment lifecycle API.
package main

import (
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/api"
	"github.com/mikelane/tempus/internal/cleanup"
	"github.com/mikelane/tempus/internal/compute"
	"github.com/mikelane/tempus/internal/config"
	"github.com/mikelane/tempus/internal/logging"
	"github.com/mikelane/tempus/internal/orchestrator"
	"github.com/mikelane/tempus/internal/routing"
	"github.com/mikelane/tempus/internal/schedule"
	"github.com/mikelane/tempus/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tempus",
		Short: "Ephemeral preview environments with automatic teardown",
		Long: `tempus provisions short-lived preview environments on AWS and
guarantees their teardown once the TTL expires. Each preview gets a
Fargate service, an ALB target group and path rule, and a one-shot
EventBridge rule that invokes the cleanup Lambda at expiry.`,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lifecycle API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			return serve(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "bind address, overrides LISTEN_ADDR")
	return cmd
}

func serve(cmd *cobra.Command, cfg config.Config) error {
	logger := logging.New()
	defer logger.Sync() //nolint:errcheck // stdout sync failures are benign

	awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
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
		logger,
	)

	saga := cleanup.NewSaga(st, cp, rt, sc, cleanup.Config{
		DrainPollInterval: cfg.DrainPollInterval,
		DrainTimeout:      cfg.DrainTimeout,
	}, logger)

	orch := orchestrator.New(st, cp, rt, sc, saga, orchestrator.Config{
		PublicHost:         cfg.ALBDNSName,
		DefaultTTLHours:    cfg.DefaultTTLHours,
		DefaultExtendHours: cfg.DefaultExtendHours,
		MinHours:           cfg.MinTTLHours,
		MaxHours:           cfg.MaxTTLHours,
		PriorityAttempts:   cfg.PriorityAttempts,
	}, logger)

	server := api.NewServer(orch, logger)

	logger.Info("starting tempus API server",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("region", cfg.Region),
		zap.String("cluster", cfg.ClusterName))

	return server.Router().Run(cfg.ListenAddr)
}
