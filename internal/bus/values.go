package bus

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// ErrUnexpectedType is returned when a call result has another shape than expected.
var ErrUnexpectedType = errors.New("unexpected value type")

// AsString decodes a string result.
func AsString(v *structpb.Value) (string, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("want string, got %T: %w", v.GetKind(), ErrUnexpectedType)
	}

	return s.StringValue, nil
}

// AsInt decodes a numeric result, rounding to the nearest integer.
func AsInt(v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("want number, got %T: %w", v.GetKind(), ErrUnexpectedType)
	}

	return int(math.Round(n.NumberValue)), nil
}

// AsBool decodes a boolean result.
func AsBool(v *structpb.Value) (bool, error) {
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("want bool, got %T: %w", v.GetKind(), ErrUnexpectedType)
	}

	return b.BoolValue, nil
}

// AsStrings decodes a list of strings.
func AsStrings(v *structpb.Value) ([]string, error) {
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("want list, got %T: %w", v.GetKind(), ErrUnexpectedType)
	}

	result := make([]string, 0, len(list.ListValue.GetValues()))

	for _, item := range list.ListValue.GetValues() {
		s, err := AsString(item)
		if err != nil {
			return nil, err
		}

		result = append(result, s)
	}

	return result, nil
}

// AsStructs decodes a list of structs.
func AsStructs(v *structpb.Value) ([]*structpb.Struct, error) {
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("want list, got %T: %w", v.GetKind(), ErrUnexpectedType)
	}

	result := make([]*structpb.Struct, 0, len(list.ListValue.GetValues()))

	for _, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, fmt.Errorf("want struct item, got %T: %w", item.GetKind(), ErrUnexpectedType)
		}

		result = append(result, s.StructValue)
	}

	return result, nil
}

// AsStruct decodes a single struct.
func AsStruct(v *structpb.Value) (*structpb.Struct, error) {
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, fmt.Errorf("want struct, got %T: %w", v.GetKind(), ErrUnexpectedType)
	}

	return s.StructValue, nil
}
