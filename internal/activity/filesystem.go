package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"figures/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const schemaVersion = "1"

var schemaVersionKey = []byte("schema_version")

// FilesystemActivityEntry is the document shape indexed in bleve.
type FilesystemActivityEntry struct {
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	ObjectType string    `json:"object_type"`
	OperatorID string    `json:"operator_id"`
	SiteID     string    `json:"site_id"`
	CourseID   string    `json:"course_id"`
	WorkerName string    `json:"worker_name"`
	DateFor    string    `json:"date_for"`
	Object     string    `json:"object"`
}

// FilesystemClient implements IActivityLogger using a local bleve index.
type FilesystemClient struct {
	index bleve.Index
}

// NewFilesystemClient opens the bleve index at the configured directory,
// creating it if needed. An index written with another schema version is
// moved aside and replaced by an empty one.
func NewFilesystemClient(config models.FilesystemActivityConfiguration) (*FilesystemClient, error) {
	dir := config.Directory

	index, err := bleve.Open(dir)
	if err != nil {
		return createIndex(dir)
	}

	storedVersion, err := index.GetInternal(schemaVersionKey)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if string(storedVersion) == schemaVersion {
		return &FilesystemClient{index: index}, nil
	}

	if err = index.Close(); err != nil {
		return nil, fmt.Errorf("failed to close outdated index: %w", err)
	}
	archived := fmt.Sprintf("%s.v%s-%d", dir, storedVersion, time.Now().Unix())
	if err = os.Rename(dir, archived); err != nil {
		return nil, fmt.Errorf("failed to archive outdated index: %w", err)
	}
	zap.L().Warn("Activity index schema changed, starting a new index",
		zap.String("old_version", string(storedVersion)),
		zap.String("new_version", schemaVersion),
		zap.String("archived_to", archived))

	return createIndex(dir)
}

func createIndex(dir string) (*FilesystemClient, error) {
	index, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create activity index: %w", err)
	}
	if err = index.SetInternal(schemaVersionKey, []byte(schemaVersion)); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to set schema version: %w", err)
	}
	return &FilesystemClient{index: index}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	keywordMapping := bleve.NewKeywordFieldMapping()
	dateMapping := bleve.NewDateTimeFieldMapping()
	textMapping := bleve.NewTextFieldMapping()

	disabledMapping := bleve.NewTextFieldMapping()
	disabledMapping.Index = false
	disabledMapping.Store = true

	docMapping := bleve.NewDocumentMapping()
	for _, field := range SearchableFields {
		docMapping.AddFieldMappingsAt(field, keywordMapping)
	}
	docMapping.AddFieldMappingsAt("timestamp", dateMapping)
	docMapping.AddFieldMappingsAt("message", textMapping)
	docMapping.AddFieldMappingsAt("object", disabledMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

func parseTimestamp(fields map[string]any) time.Time {
	if s, ok := fields["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (c *FilesystemClient) Close() error {
	return c.index.Close()
}

func (c *FilesystemClient) Send(activity models.Activity) error {
	ts, err := strconv.ParseInt(activity.Filter.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp: %w", err)
	}
	timestamp := time.Unix(0, ts)

	var objectJSON string
	if activity.Object != nil && objectTypesWithPayload[activity.Filter.Fields["object_type"]] {
		var b []byte
		b, err = json.Marshal(activity.Object)
		if err != nil {
			return fmt.Errorf("failed to marshal object: %w", err)
		}
		objectJSON = string(b)
	}

	fields := activity.Filter.Fields
	entry := FilesystemActivityEntry{
		Message:    activity.Message,
		Timestamp:  timestamp,
		Action:     fields["action"],
		ObjectType: fields["object_type"],
		OperatorID: fields["operator_id"],
		SiteID:     fields["site_id"],
		CourseID:   fields["course_id"],
		WorkerName: fields["worker_name"],
		DateFor:    fields["date_for"],
		Object:     objectJSON,
	}

	docID := uuid.New().String()
	err = c.index.Index(docID, entry)
	if err != nil {
		return fmt.Errorf("failed to index activity: %w", err)
	}

	return nil
}

func (c *FilesystemClient) Search(searchCriteria map[string][]string) ([]map[string]any, error) {
	criteriaQuery := buildBleveQuery(searchCriteria)

	now := time.Now()
	thirtyDaysAgo := now.AddDate(0, 0, -30)
	dateQuery := bleve.NewDateRangeQuery(thirtyDaysAgo, now)
	dateQuery.SetField("timestamp")

	conjunction := bleve.NewConjunctionQuery(criteriaQuery, dateQuery)

	searchRequest := bleve.NewSearchRequest(conjunction)
	searchRequest.Size = 100
	searchRequest.SortBy([]string{"-timestamp"})
	searchRequest.Fields = []string{"*"}

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}

	activities := make([]map[string]any, 0, len(result.Hits))
	for _, hit := range result.Hits {
		entry := make(map[string]any, len(SearchableFields)+3)
		for _, field := range SearchableFields {
			value, _ := hit.Fields[field].(string)
			entry[field] = value
		}
		entry["message"], _ = hit.Fields["message"].(string)

		if t := parseTimestamp(hit.Fields); !t.IsZero() {
			entry["timestamp"] = strconv.FormatInt(t.UnixNano(), 10)
		}

		if objectStr, _ := hit.Fields["object"].(string); objectStr != "" {
			var objectMap map[string]any
			if json.Unmarshal([]byte(objectStr), &objectMap) == nil {
				entry["object"] = objectMap
			}
		}

		activities = append(activities, entry)
	}

	return activities, nil
}

func (c *FilesystemClient) CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	criteriaQuery := buildBleveQuery(searchCriteria)

	now := time.Now()
	startTime := now.AddDate(0, 0, -days)
	dateQuery := bleve.NewDateRangeQuery(startTime, now)
	dateQuery.SetField("timestamp")

	conjunction := bleve.NewConjunctionQuery(criteriaQuery, dateQuery)

	searchRequest := bleve.NewSearchRequest(conjunction)
	searchRequest.Size = 0

	facet := bleve.NewFacetRequest("timestamp", days+1)
	for i := days; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)
		name := dayStart.Format("2006-01-02")
		facet.AddDateTimeRange(name, dayStart, dayEnd)
	}
	searchRequest.AddFacet("daily_counts", facet)

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by day: %w", err)
	}

	dailyFacet, ok := result.Facets["daily_counts"]
	if !ok {
		return []models.TimeSeriesPoint{}, nil
	}

	points := make([]models.TimeSeriesPoint, 0, len(dailyFacet.DateRanges))
	for _, dr := range dailyFacet.DateRanges {
		if dr.Count > 0 {
			points = append(points, models.TimeSeriesPoint{
				Date:  dr.Name,
				Count: int64(dr.Count),
			})
		}
	}

	return points, nil
}

func buildBleveQuery(searchCriteria map[string][]string) query.Query {
	var queries []query.Query

	for key, values := range searchCriteria {
		if len(values) == 1 {
			termQuery := bleve.NewTermQuery(values[0])
			termQuery.SetField(key)
			queries = append(queries, termQuery)
		} else if len(values) > 1 {
			var termQueries []query.Query
			for _, v := range values {
				tq := bleve.NewTermQuery(v)
				tq.SetField(key)
				termQueries = append(termQueries, tq)
			}
			disjunction := bleve.NewDisjunctionQuery(termQueries...)
			disjunction.SetMin(1)
			queries = append(queries, disjunction)
		}
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}

	if len(queries) == 1 {
		return queries[0]
	}

	return bleve.NewConjunctionQuery(queries...)
}
