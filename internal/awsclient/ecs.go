package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classECS throttle.Class = throttle.ClassECSClusterReads

// RunningTasks lists and describes the running tasks for service serviceName in
// clusterArn (container-service handler: "emits a task per
// running task in the service").
func (p *ProviderClient) RunningTasks(ctx context.Context, clusterArn, serviceName string) ([]ecstypes.Task, error) {
	var taskArns []string
	var nextToken *string
	for {
		var page *ecs.ListTasksOutput
		err := p.call(ctx, "ecs", classECS, "ListTasks", func() error {
			var innerErr error
			page, innerErr = p.ecs.ListTasks(ctx, &ecs.ListTasksInput{
				Cluster: aws.String(clusterArn),
				ServiceName: aws.String(serviceName),
				NextToken: nextToken,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		taskArns = append(taskArns, page.TaskArns...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	if len(taskArns) == 0 {
		return nil, nil
	}

	var out *ecs.DescribeTasksOutput
	err := p.call(ctx, "ecs", classECS, "DescribeTasks", func() error {
		var innerErr error
		out, innerErr = p.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{Cluster: aws.String(clusterArn), Tasks: taskArns})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// TaskDefinition fetches the task definition a task references, used by the
// task's environment-variable and role-fallback inference.
func (p *ProviderClient) TaskDefinition(ctx context.Context, taskDefArn string) (*ecstypes.TaskDefinition, error) {
	var out *ecs.DescribeTaskDefinitionOutput
	err := p.call(ctx, "ecs", classECS, "DescribeTaskDefinition", func() error {
		var innerErr error
		out, innerErr = p.ecs.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{TaskDefinition: aws.String(taskDefArn)})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.TaskDefinition, nil
}

// RunningTaskDefinitions lists every task definition ARN currently running
// in clusterName, the Initializer's scheduler task-inventory for the mutex
// probe (step 2's "two task-definition ARNs compare equal
// ignoring the trailing version segment"). Satisfies
// initializer.TaskInventory.
func (p *ProviderClient) RunningTaskDefinitions(ctx context.Context, clusterName string) ([]string, error) {
	var taskArns []string
	var nextToken *string
	for {
		var page *ecs.ListTasksOutput
		err := p.call(ctx, "ecs", classECS, "ListTasks", func() error {
			var innerErr error
			page, innerErr = p.ecs.ListTasks(ctx, &ecs.ListTasksInput{
				Cluster: aws.String(clusterName),
				NextToken: nextToken,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		taskArns = append(taskArns, page.TaskArns...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	if len(taskArns) == 0 {
		return nil, nil
	}

	var out *ecs.DescribeTasksOutput
	err := p.call(ctx, "ecs", classECS, "DescribeTasks", func() error {
		var innerErr error
		out, innerErr = p.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{Cluster: aws.String(clusterName), Tasks: taskArns})
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	defs := make([]string, 0, len(out.Tasks))
	for _, task := range out.Tasks {
		defs = append(defs, aws.ToString(task.TaskDefinitionArn))
	}
	return defs, nil
}

// ListTaskDefinitionFamilies lists every task-definition family name in the
// region. The Initializer's mutex probe does not call it; that probe works
// from RunningTaskDefinitions.
func (p *ProviderClient) ListTaskDefinitionFamilies(ctx context.Context) ([]string, error) {
	var out []string
	var nextToken *string
	for {
		var page *ecs.ListTaskDefinitionFamiliesOutput
		err := p.call(ctx, "ecs", classECS, "ListTaskDefinitionFamilies", func() error {
			var innerErr error
			page, innerErr = p.ecs.ListTaskDefinitionFamilies(ctx, &ecs.ListTaskDefinitionFamiliesInput{NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Families...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}
