package awsclient

import (
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
)

// aggregatorBackoff implements the 5-attempt exponential backoff at
// 2000·2^attempt ms the critical aggregator-read path requires ;
// every other path keeps the SDK's jittered default.
type aggregatorBackoff struct{}

func (aggregatorBackoff) BackoffDelay(attempt int, _ error) (time.Duration, error) {
	ms := 2000 * math.Pow(2, float64(attempt))
	return time.Duration(ms) * time.Millisecond, nil
}

func newAggregatorRetryer() aws.Retryer {
	return retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = 5
		o.Backoff = aggregatorBackoff{}
	})
}

func newDefaultRetryer() aws.Retryer {
	return retry.NewStandard()
}
