package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	ddbstreamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// DescribeStream fetches stream metadata for a table's live stream ARN; the
// table handler emits a stream resource only when the table has one.
func (p *ProviderClient) DescribeStream(ctx context.Context, streamArn string) (*ddbstreamtypes.StreamDescription, error) {
	var out *dynamodbstreams.DescribeStreamOutput
	err := p.call(ctx, "dynamodbstreams", throttle.ClassDynamoStreamsDescribe, "DescribeStream", func() error {
		var innerErr error
		out, innerErr = p.dynamostreams.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{StreamArn: aws.String(streamArn)})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.StreamDescription, nil
}
