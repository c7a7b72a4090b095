package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes sweep counters to CloudWatch. Like report publishing,
// metric emission is best-effort and never aborts a sweep.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
}

// NewMetrics returns a Metrics emitter bound to a namespace.
func NewMetrics(cwClient CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		CloudWatch: cwClient,
		Namespace:  namespace,
	}
}

// PublishCounts pushes one datum per counter under the configured namespace.
func (m *Metrics) PublishCounts(ctx context.Context, counts map[string]float64) error {
	if len(counts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	data := make([]cwtypes.MetricDatum, 0, len(counts))
	for name, value := range counts {
		n := name
		v := value
		data = append(data, cwtypes.MetricDatum{
			MetricName: &n,
			Value:      &v,
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &now,
		})
	}

	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.Namespace,
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
