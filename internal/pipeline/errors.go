package pipeline

import (
	"context"
	"encoding/json"

	"figures/internal/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrorRecord locates a pipeline failure.
type ErrorRecord struct {
	Type     models.PipelineErrorType
	SiteID   *uint
	CourseID *string
	UserID   *uint
	Data     map[string]any
}

// ErrorType picks the recorded kind of err, VALIDATION winning over fallback.
func ErrorType(err error, fallback models.PipelineErrorType) models.PipelineErrorType {
	if IsValidationError(err) {
		return models.PipelineErrorValidation
	}
	return fallback
}

// LogError logs err and stores it as a pipeline error row. Storing is best
// effort: a failed insert is only logged.
func LogError(ctx context.Context, db *gorm.DB, record ErrorRecord, err error) {
	fields := []zap.Field{zap.String("error_type", string(record.Type)), zap.Error(err)}
	if record.SiteID != nil {
		fields = append(fields, zap.Uint("site_id", *record.SiteID))
	}
	if record.CourseID != nil {
		fields = append(fields, zap.String("course_id", *record.CourseID))
	}
	if record.UserID != nil {
		fields = append(fields, zap.Uint("user_id", *record.UserID))
	}
	zap.L().Error("Pipeline error", fields...)

	data := map[string]any{"message": err.Error()}
	for key, value := range record.Data {
		data[key] = value
	}
	raw, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		raw = []byte(`{}`)
	}

	row := models.PipelineError{
		ErrorType: record.Type,
		ErrorData: datatypes.JSON(raw),
		UserID:    record.UserID,
		CourseID:  record.CourseID,
		SiteID:    record.SiteID,
	}
	if createErr := db.WithContext(ctx).Create(&row).Error; createErr != nil {
		zap.L().Error("Failed to store pipeline error", zap.Error(createErr))
	}
}
