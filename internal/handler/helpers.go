package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi/proxyutil"
	"go.uber.org/zap"

	"github.com/advisorly/fincopy/internal/pkg/errcode"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
)

// apiError carries the errcode value into proxyutil's envelope; FailJson
// reads the code through the Code method.
type apiError struct {
	code int
	msg  string
}

func (e apiError) Error() string {
	return e.msg
}

func (e apiError) Code() uint32 {
	return uint32(e.code)
}

func success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func fail(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, apiError{code: code, msg: message})
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case appErr.IsNotFound(err):
		fail(c, errcode.ErrNotFound, "not found")
	case appErr.IsInvalid(err):
		fail(c, errcode.ErrInvalid, "invalid request")
	case appErr.IsConfiguration(err):
		fail(c, errcode.ErrConfiguration, "service misconfigured")
	default:
		fail(c, errcode.ErrInternal, "internal error")
	}
}
