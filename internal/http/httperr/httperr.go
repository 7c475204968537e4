// Package httperr renders the error envelope every admin API error uses.
// The console displays "{status}{code? ' '+code : ''}: {message}".
package httperr

import "github.com/gin-gonic/gin"

// Envelope is the wire shape of an API error.
type Envelope struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Abort writes the envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Status: status, Code: code, Message: message})
}

// AbortErr records err on the Gin context for the access log, then writes
// the envelope with the error's message.
func AbortErr(c *gin.Context, status int, code string, err error) {
	_ = c.Error(err)
	Abort(c, status, code, err.Error())
}
