package osc

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"
)

func asInt32(arg interface{}) (int32, error) {
	switch v := arg.(type) {
	case int32:
		return v, nil
	case int64:
		return int32(v), nil
	case float32:
		return int32(v), nil
	case float64:
		return int32(v), nil
	default:
		return 0, fmt.Errorf("expected numeric argument, got %T", arg)
	}
}

func asFloat64(arg interface{}) (float64, error) {
	switch v := arg.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected numeric argument, got %T", arg)
	}
}

func int32Args3(msg *osc.Message) (a, b, c int32, err error) {
	if len(msg.Arguments) < 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 arguments, got %d", len(msg.Arguments))
	}
	if a, err = asInt32(msg.Arguments[0]); err != nil {
		return
	}
	if b, err = asInt32(msg.Arguments[1]); err != nil {
		return
	}
	if c, err = asInt32(msg.Arguments[2]); err != nil {
		return
	}
	return
}

func float64Args3(msg *osc.Message) (a, b, c float64, err error) {
	if len(msg.Arguments) < 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 arguments, got %d", len(msg.Arguments))
	}
	if a, err = asFloat64(msg.Arguments[0]); err != nil {
		return
	}
	if b, err = asFloat64(msg.Arguments[1]); err != nil {
		return
	}
	if c, err = asFloat64(msg.Arguments[2]); err != nil {
		return
	}
	return
}
