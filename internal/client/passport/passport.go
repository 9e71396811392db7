// Package passport talks to the three passport endpoints and turns their
// loosely shaped JSON into typed values, naming the first missing or
// mistyped key when the shape is wrong.
package passport

import (
	"bytes"
	"encoding/json"

	"github.com/shanmiteko/bili-login/internal/client/domain"
)

const (
	PathCaptcha = "/x/passport-login/captcha"
	PathKey     = "/x/passport-login/web/key"
	PathLogin   = "/x/passport-login/web/login"

	CaptchaSource = "main_web"
)

// node is one position in a decoded body. Accessors fail with the path of
// the first key that is absent or of the wrong type, so a caller walking the
// keys in order always reports the earliest problem.
type node struct {
	path  string
	value any
}

func parse(op string, raw json.RawMessage) (node, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return node{}, &domain.TransportError{Op: op, Err: err}
	}
	return node{value: v}, nil
}

func (n node) child(key string) (node, bool) {
	path := key
	if n.path != "" {
		path = n.path + "." + key
	}
	obj, ok := n.value.(map[string]any)
	if !ok {
		return node{path: path}, false
	}
	v, ok := obj[key]
	return node{path: path, value: v}, ok && v != nil
}

func (n node) object(key string) (node, error) {
	c, ok := n.child(key)
	if _, isObj := c.value.(map[string]any); !ok || !isObj {
		return c, &domain.MalformedResponseError{Path: c.path}
	}
	return c, nil
}

func (n node) str(key string) (string, error) {
	c, ok := n.child(key)
	s, isStr := c.value.(string)
	if !ok || !isStr {
		return "", &domain.MalformedResponseError{Path: c.path}
	}
	return s, nil
}

func (n node) integer(key string) (int64, error) {
	c, ok := n.child(key)
	num, isNum := c.value.(json.Number)
	if !ok || !isNum {
		return 0, &domain.MalformedResponseError{Path: c.path}
	}
	i, err := num.Int64()
	if err != nil {
		return 0, &domain.MalformedResponseError{Path: c.path}
	}
	return i, nil
}
