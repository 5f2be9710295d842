// Copyright 2026 The Winefox Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/winefox/winefox-cli/api"
)

type httpError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e httpError) Error() string {
	return e.Message
}

func (e httpError) Unwrap() error {
	return e.Err
}

func wrapError(statusCode int, err error) error {
	return httpError{
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

func abortWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	var httpErr httpError
	if errors.As(err, &httpErr) {
		statusCode = httpErr.StatusCode
	}
	_ = c.AbortWithError(statusCode, err)
}

// ginErrorHandlerMiddleware logs the errors attached to the context and
// renders the last one in the response envelope
func ginErrorHandlerMiddleware(c *gin.Context) {
	c.Next()

	statusCode := c.Writer.Status()
	log := log.WithField("status", statusCode)

	for errIndex, err := range c.Errors {
		if statusCode >= http.StatusInternalServerError {
			log.Errorf("Error #%02d - %s", errIndex+1, err)
		} else if statusCode >= http.StatusBadRequest {
			log.Debugf("Error #%02d - %s", errIndex+1, err)
		}
	}

	if len(c.Errors) > 0 && c.Writer.Size() <= 0 {
		c.JSON(statusCode, api.Result[any]{
			Success:   false,
			Message:   c.Errors.Last().Error(),
			Timestamp: time.Now().UnixMilli(),
		})
	}
}
