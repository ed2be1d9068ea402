package awsclient

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AssumedCredentials is the trust-role session minted for a single crawl; it
// is held only in process memory and never written to persistent storage.
type AssumedCredentials struct {
	AccessKeyID string
	SecretAccessKey string
	SessionToken string
	Expiration time.Time
}

// AssumeRole assumes roleArn under sessionName, scoped to a single crawl.
// Callers construct a root-account ProviderClient (no assumed role) purely to
// reach this method; every other adapter is minted against the resulting
// per-account credentials.
func (p *ProviderClient) AssumeRole(ctx context.Context, roleArn, sessionName string) (AssumedCredentials, error) {
	var out *sts.AssumeRoleOutput
	err := p.call(ctx, "sts", "sts-assume-role", "AssumeRole", func() error {
		var innerErr error
		out, innerErr = p.sts.AssumeRole(ctx, &sts.AssumeRoleInput{
			RoleArn: aws.String(roleArn),
			RoleSessionName: aws.String(sessionName),
			DurationSeconds: aws.Int32(3600),
		})
		return innerErr
	})
	if err != nil {
		return AssumedCredentials{}, err
	}

	creds := out.Credentials
	return AssumedCredentials{
		AccessKeyID: aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken: aws.ToString(creds.SessionToken),
		Expiration: aws.ToTime(creds.Expiration),
	}, nil
}

// Whoami returns the caller identity. The Initializer's reachability probe
// does not call it; that probe only opens TCP connections.
func (p *ProviderClient) Whoami(ctx context.Context) (string, error) {
	var out *sts.GetCallerIdentityOutput
	err := p.call(ctx, "sts", "sts-assume-role", "GetCallerIdentity", func() error {
		var innerErr error
		out, innerErr = p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		return innerErr
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Account), nil
}
