package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/aws/smithy-go"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ServiceError wraps an AWS service error with the operation that failed and
// a suggestion derived from the error text.
func ServiceError(service string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", service, operation),
		Suggestion: getServiceSuggestion(service, err),
		Details:    err.Error(),
		Err:        err,
	}
}

// getServiceSuggestion returns helpful suggestions based on service and error
func getServiceSuggestion(service string, err error) string {
	errStr := err.Error()

	switch service {
	case "ssm":
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions: ssm:GetParameter and kms:Decrypt for SecureString parameters"
		}
		if strings.Contains(errStr, "InvalidKeyId") {
			return "The KMS key for this SecureString parameter may not exist or you lack kms:Decrypt permission"
		}
	case "dynamodb":
		if strings.Contains(errStr, "ResourceNotFoundException") {
			return "Verify the table name and region. List tables with: 'aws dynamodb list-tables'"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions: dynamodb:GetItem, dynamodb:PutItem, dynamodb:DeleteItem, dynamodb:Query"
		}
		if strings.Contains(errStr, "ProvisionedThroughputExceeded") {
			return "The table is throttling requests. Wait a moment and try again"
		}
	case "s3":
		if strings.Contains(errStr, "NoSuchBucket") {
			return "Verify the asset bucket name and region"
		}
	}

	if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
		return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
	}
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and endpoint configuration"
	}

	return ""
}

// retryableCodes are AWS error codes that indicate a transient failure.
var retryableCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ServiceUnavailable":                     true,
	"InternalServerError":                    true,
}

var retryablePatterns = []string{
	"timeout",
	"timed out",
	"temporary failure",
	"connection reset",
	"broken pipe",
	"rate limit",
	"throttling",
	"too many requests",
}

// IsRetryable reports whether err looks transient. AWS API errors are
// classified by code, everything else by message.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && retryableCodes[apiErr.ErrorCode()] {
		return true
	}

	lower := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// SimplifyError turns file and parse failures into UserError or
// ConfigError values the CLI can print. Errors that are already user facing
// are returned unchanged.
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	var userErr UserError
	var cfgErr ConfigError
	if errors.As(err, &userErr) || errors.As(err, &cfgErr) {
		return err
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return UserError{
			Message:    "File not found",
			Suggestion: "Check the path; plugin files are resolved relative to the working directory",
			Err:        err,
		}
	case errors.Is(err, fs.ErrPermission):
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Make sure the file is readable by the current user",
			Err:        err,
		}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return ConfigError{
			Message:    "Invalid JSON: " + err.Error(),
			Suggestion: "Check for trailing commas and unquoted keys",
		}
	case strings.Contains(err.Error(), "yaml:"):
		return ConfigError{
			Message:    "Invalid YAML: " + err.Error(),
			Suggestion: "Check indentation and quote values containing ':' or '#'",
		}
	}

	return err
}
