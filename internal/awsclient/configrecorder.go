package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/configservice"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// ConfigEnablement reports whether a region has both an active configuration
// recorder and a delivery channel, the pair AccountResolver's probe requires
// before marking a region eligible for discovery.
func (p *ProviderClient) ConfigEnablement(ctx context.Context) (bool, error) {
	var recorders *configservice.DescribeConfigurationRecordersOutput
	err := p.call(ctx, "configservice", throttle.Class("configservice-describe-recorders"), "DescribeConfigurationRecorders", func() error {
		var innerErr error
		recorders, innerErr = p.configserviceDefault.DescribeConfigurationRecorders(ctx, &configservice.DescribeConfigurationRecordersInput{})
		return innerErr
	})
	if err != nil {
		return false, err
	}
	if len(recorders.ConfigurationRecorders) == 0 {
		return false, nil
	}

	var channels *configservice.DescribeDeliveryChannelsOutput
	err = p.call(ctx, "configservice", throttle.Class("configservice-describe-recorders"), "DescribeDeliveryChannels", func() error {
		var innerErr error
		channels, innerErr = p.configserviceDefault.DescribeDeliveryChannels(ctx, &configservice.DescribeDeliveryChannelsInput{})
		return innerErr
	})
	if err != nil {
		return false, err
	}

	return len(channels.DeliveryChannels) > 0, nil
}
