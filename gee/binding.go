package gee

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes bounds JSON request bodies; a URL plus envelope is far below it.
const maxBodyBytes = 64 << 10

// ShouldBindJSON 只解析 json：拒绝未知字段和多个 JSON 值。
func (c *Context) ShouldBindJSON(dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Req.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON value")
	}
	return nil
}

// BindJSON 解析 json，失败时直接回 400。
func (c *Context) BindJSON(dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithError(http.StatusBadRequest, "Invalid json")
		return err
	}
	return nil
}
