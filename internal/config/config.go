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

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the service needs from its environment.
type Config struct {
	// ListenAddr is the HTTP bind address for the API server.
	ListenAddr string

	// Region is the AWS region all clients are built for.
	Region string

	// ClusterName is the ECS cluster previews run on.
	ClusterName string

	// ALBArn identifies the shared application load balancer.
	ALBArn string

	// ALBListenerArn is the listener preview routing rules attach to.
	ALBListenerArn string

	// ALBDNSName is the public hostname preview URLs are built from.
	ALBDNSName string

	// TaskExecutionRoleArn and TaskRoleArn are the IAM roles handed to
	// each preview's task definition.
	TaskExecutionRoleArn string
	TaskRoleArn          string

	// SecurityGroupID and SubnetIDs place preview workloads on the
	// network.
	SecurityGroupID string
	SubnetIDs       []string

	// ContainerImage is the image every preview runs.
	ContainerImage string

	// LogGroupName receives preview container logs.
	LogGroupName string

	// TableName is the DynamoDB table holding preview metadata.
	TableName string

	// CleanupFunctionArn is the Lambda the expiry schedule invokes.
	CleanupFunctionArn string

	// DefaultTTLHours applies when a create request omits the TTL.
	// MinTTLHours and MaxTTLHours bound both create and extend input.
	DefaultTTLHours    int
	DefaultExtendHours int
	MinTTLHours        int
	MaxTTLHours        int

	// PriorityAttempts bounds the listener-priority collision retry.
	PriorityAttempts int

	// DrainPollInterval and DrainTimeout bound the cleanup saga's wait
	// for a workload to stop before force deletion.
	DrainPollInterval time.Duration
	DrainTimeout      time.Duration
}

// Load builds a Config from the environment, falling back to defaults
// wherever a variable is unset.
func Load() Config {
	return Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		Region:               getEnv("AWS_REGION", "ap-south-1"),
		ClusterName:          getEnv("ECS_CLUSTER_NAME", "tempus-cluster"),
		ALBArn:               getEnv("ALB_ARN", ""),
		ALBListenerArn:       getEnv("ALB_LISTENER_ARN", ""),
		ALBDNSName:           getEnv("ALB_DNS_NAME", ""),
		TaskExecutionRoleArn: getEnv("TASK_EXECUTION_ROLE_ARN", ""),
		TaskRoleArn:          getEnv("TASK_ROLE_ARN", ""),
		SecurityGroupID:      getEnv("ECS_SECURITY_GROUP_ID", ""),
		SubnetIDs:            splitList(os.Getenv("SUBNET_IDS")),
		ContainerImage:       getEnv("CONTAINER_IMAGE", ""),
		LogGroupName:         getEnv("LOG_GROUP_NAME", "/ecs/tempus"),
		TableName:            getEnv("DYNAMODB_TABLE_NAME", "tempus-previews"),
		CleanupFunctionArn:   getEnv("LAMBDA_CLEANUP_ARN", ""),
		DefaultTTLHours:      getEnvInt("DEFAULT_TTL_HOURS", 2),
		DefaultExtendHours:   getEnvInt("DEFAULT_EXTEND_HOURS", 1),
		MinTTLHours:          getEnvInt("MIN_TTL_HOURS", 1),
		MaxTTLHours:          getEnvInt("MAX_TTL_HOURS", 24),
		PriorityAttempts:     getEnvInt("PRIORITY_ATTEMPTS", 10),
		DrainPollInterval:    getEnvDuration("DRAIN_POLL_INTERVAL", 10*time.Second),
		DrainTimeout:         getEnvDuration("DRAIN_TIMEOUT", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
