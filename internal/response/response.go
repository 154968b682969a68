package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every failed request. Successful requests
// carry their payload as the whole body, see JSON.
type ErrorResponse struct {
	Error    ErrorBody `json:"error"`
	Metadata Metadata  `json:"metadata"`
}

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Metadata ties an error to the request that caused it.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// JSON writes body as the response. Documents, lists and the login and
// upload results are rendered unwrapped so their field names are the API.
func JSON(c *gin.Context, statusCode int, body any) {
	c.JSON(statusCode, body)
}

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, newError(c, code, nil))
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, newError(c, code, fields))
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, newError(c, code, nil))
}

func newError(c *gin.Context, code ErrCode, fields map[string]string) ErrorResponse {
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		id = uuid.New().String()
	}
	return ErrorResponse{
		Error: ErrorBody{Code: code, Message: GetMessage(code), Fields: fields},
		Metadata: Metadata{
			RequestID: id,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
