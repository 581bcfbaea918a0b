package activity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"figures/internal/configuration"
	"figures/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	lokiPushPath  = "/loki/api/v1/push"
	lokiQueryPath = "/loki/api/v1/query_range"
	lokiLimit     = 100
)

// streamLabels are indexed by Loki. The remaining fields live in the log line.
var streamLabels = map[string]bool{"action": true, "object_type": true}

var unsafeValue = regexp.MustCompile(`[^A-Za-z0-9_.:+\-@/ ]`)

type LokiClient struct {
	client *resty.Client
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiQueryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Stream map[string]string `json:"stream"`
			Metric map[string]string `json:"metric"`
			Values [][]any           `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

func NewLokiClient(config models.LokiConfiguration) *LokiClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(config.Endpoint, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	return &LokiClient{client: client}
}

func (c *LokiClient) Close() error {
	return nil
}

func (c *LokiClient) Send(activity models.Activity) error {
	if _, err := strconv.ParseInt(activity.Filter.Timestamp, 10, 64); err != nil {
		return fmt.Errorf("failed to parse timestamp: %w", err)
	}

	labels := map[string]string{"app": configuration.AppName}
	line := map[string]any{"message": activity.Message}
	for key, value := range activity.Filter.Fields {
		if streamLabels[key] {
			labels[key] = value
		} else {
			line[key] = value
		}
	}
	if activity.Object != nil && objectTypesWithPayload[activity.Filter.Fields["object_type"]] {
		line["object"] = activity.Object
	}

	raw, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	body := lokiPushRequest{Streams: []lokiStream{{
		Stream: labels,
		Values: [][]string{{activity.Filter.Timestamp, string(raw)}},
	}}}

	resp, err := c.client.R().SetBody(body).Post(lokiPushPath)
	if err != nil {
		return fmt.Errorf("failed to push activity: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("loki push returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *LokiClient) Search(searchCriteria map[string][]string) ([]map[string]any, error) {
	now := time.Now()
	var result lokiQueryResponse
	resp, err := c.client.R().
		SetQueryParams(map[string]string{
			"query":     buildLogQuery(searchCriteria),
			"start":     strconv.FormatInt(now.AddDate(0, 0, -30).UnixNano(), 10),
			"end":       strconv.FormatInt(now.UnixNano(), 10),
			"limit":     strconv.Itoa(lokiLimit),
			"direction": "backward",
		}).
		SetResult(&result).
		Get(lokiQueryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("loki query returned %d: %s", resp.StatusCode(), resp.String())
	}

	activities := make([]map[string]any, 0)
	for _, stream := range result.Data.Result {
		for _, value := range stream.Values {
			if len(value) != 2 {
				continue
			}
			ts, _ := value[0].(string)
			line, _ := value[1].(string)

			entry := map[string]any{}
			if err = json.Unmarshal([]byte(line), &entry); err != nil {
				entry = map[string]any{"message": line}
			}
			for key, label := range stream.Stream {
				if streamLabels[key] {
					entry[key] = label
				}
			}
			entry["timestamp"] = ts
			activities = append(activities, entry)
		}
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return timestampOf(activities[i]) > timestampOf(activities[j])
	})
	if len(activities) > lokiLimit {
		activities = activities[:lokiLimit]
	}
	return activities, nil
}

func (c *LokiClient) CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var result lokiQueryResponse
	resp, err := c.client.R().
		SetQueryParams(map[string]string{
			"query": fmt.Sprintf("sum(count_over_time(%s [1d]))", buildLogQuery(searchCriteria)),
			"start": strconv.FormatInt(start.UnixNano(), 10),
			"end":   strconv.FormatInt(now.UnixNano(), 10),
			"step":  "86400",
		}).
		SetResult(&result).
		Get(lokiQueryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by day: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("loki query returned %d: %s", resp.StatusCode(), resp.String())
	}

	counts := map[string]int64{}
	for _, series := range result.Data.Result {
		for _, value := range series.Values {
			if len(value) != 2 {
				continue
			}
			seconds, ok := value[0].(float64)
			if !ok {
				continue
			}
			raw, _ := value[1].(string)
			count, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil || count == 0 {
				continue
			}
			day := time.Unix(int64(seconds), 0).UTC().Format(models.DateLayout)
			counts[day] += int64(count)
		}
	}

	points := make([]models.TimeSeriesPoint, 0, len(counts))
	for day, count := range counts {
		points = append(points, models.TimeSeriesPoint{Date: day, Count: count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// buildLogQuery turns search criteria into a LogQL selector. Label criteria go
// into the stream selector, the rest are matched after the json parser.
func buildLogQuery(searchCriteria map[string][]string) string {
	keys := make([]string, 0, len(searchCriteria))
	for key, values := range searchCriteria {
		if len(values) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	selector := []string{fmt.Sprintf(`app=%q`, configuration.AppName)}
	var filters []string
	for _, key := range keys {
		matcher := labelMatcher(key, searchCriteria[key])
		if streamLabels[key] {
			selector = append(selector, matcher)
		} else {
			filters = append(filters, matcher)
		}
	}

	q := "{" + strings.Join(selector, ", ") + "}"
	if len(filters) > 0 {
		q += " | json | " + strings.Join(filters, " | ")
	}
	return q
}

func labelMatcher(key string, values []string) string {
	if len(values) == 1 {
		return fmt.Sprintf(`%s=%q`, key, unsafeValue.ReplaceAllString(values[0], ""))
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = regexp.QuoteMeta(unsafeValue.ReplaceAllString(v, ""))
	}
	return fmt.Sprintf(`%s=~%q`, key, strings.Join(escaped, "|"))
}

func timestampOf(entry map[string]any) int64 {
	s, _ := entry["timestamp"].(string)
	ts, _ := strconv.ParseInt(s, 10, 64)
	return ts
}
