package operator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/operator"
)

type nopBody struct{}

func (nopBody) Init() error                      { return nil }
func (nopBody) Process(*operator.Base) error     { return nil }
func (nopBody) OnStop()                          {}

func TestRegisterAndNew(t *testing.T) {
	operator.Register("NopTestKind", func(name string, params map[string]interface{}) (operator.Operator, error) {
		return operator.NewBase(name, "NopTestKind", nil, nil, nopBody{}, nil), nil
	})

	op, err := operator.New("NopTestKind", "nop1", nil)
	require.NoError(t, err)
	require.Equal(t, "nop1", op.Name())
	require.Equal(t, "NopTestKind", op.Kind())
}

func TestNewUnknownKindErrors(t *testing.T) {
	_, err := operator.New("DoesNotExist", "x", nil)
	require.Error(t, err)
}
