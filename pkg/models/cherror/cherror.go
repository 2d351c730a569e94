package cherror

import "fmt"

const (
	CHNK_UNEXPECTED     = "CHNKU"
	CHNK_CONFIG_ERROR   = "CHNKC"
	CHNK_CATALOG_ERROR  = "CHNKM"
	CHNK_NODE_ERROR     = "CHNKN"
	CHNK_ESTIMATE_ERROR = "CHNKS"
	CHNK_PLAN_ERROR     = "CHNKP"
	CHNK_FENCE_ERROR    = "CHNKF"
	CHNK_EXECUTE_ERROR  = "CHNKX"
)

var existingErrorCodeMap = map[string]string{
	CHNK_CONFIG_ERROR:   "invalid splitter configuration",
	CHNK_CATALOG_ERROR:  "routing metadata catalog error",
	CHNK_NODE_ERROR:     "storage node connection error",
	CHNK_ESTIMATE_ERROR: "chunk size estimation failed",
	CHNK_PLAN_ERROR:     "split point computation failed",
	CHNK_FENCE_ERROR:    "routing version read failed",
	CHNK_EXECUTE_ERROR:  "split command rejected",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &ChunkError{}

type ChunkError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *ChunkError {
	return &ChunkError{
		Err:       fmt.Errorf("%s", errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *ChunkError {
	return New(errorCode, fmt.Sprintf(format, a...))
}

func (er *ChunkError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *ChunkError) Unwrap() error {
	return er.Err
}
