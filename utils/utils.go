package utils

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/finch-technologies/go-queue/log"
)

func If[T any](condition bool, trueValue, falseValue T) T {
	if condition {
		return trueValue
	}
	return falseValue
}

func Map[T, V any](ts []T, fn func(T) V) []V {
	result := make([]V, len(ts))
	for i, t := range ts {
		result[i] = fn(t)
	}
	return result
}

func Filter[T any](ss []T, test func(T, int) bool) (res []T) {
	for i, s := range ss {
		if test(s, i) {
			res = append(res, s)
		}
	}
	return
}

func Contains[T comparable](s []T, e T) bool {
	for _, a := range s {
		if a == e {
			return true
		}
	}
	return false
}

// Try wraps a goroutine and will recover from a panic
// If a logger is provided, it will log the error using the given logger
func Try(f func(), logger ...log.Logger) {
	defer func() {
		if err := recover(); err != nil {
			if len(logger) > 0 {
				logger[0].ErrorStack(string(debug.Stack()), "%v", err)
			}
		}
	}()

	f()
}

// TryReturn wraps a function with a return value and will recover from a panic by returning an error
func TryReturn[T any](f func() (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if er, ok := r.(error); ok {
				err = er
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()

	return f()
}

// TryCatch wraps a goroutine and will recover from a panic
// It will pass the error message to the catch function on panic
func TryCatch(f func(), catch func(e error, stackTrace string)) {
	defer func() {
		if err := recover(); err != nil {
			if _, ok := err.(error); ok {
				catch(err.(error), string(debug.Stack()))
			} else {
				catch(fmt.Errorf("%v", err), string(debug.Stack()))
			}
		}
	}()

	f()
}

func DurationOrDefault(value, defaultValue time.Duration) time.Duration {
	if value == 0 {
		return defaultValue
	}
	return value
}

func StringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func IntOrDefault(value, defaultValue int) int {
	if value == 0 {
		return defaultValue
	}
	return value
}

func StringToIntOrDefault(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func Sleep(ctx context.Context, delay time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

/*
MergeObjects merges two objects of the same type.
It will iterate over the fields of the object and set the value of objA to the value of objB if the value of objA is the zero value.
*/
func MergeObjects[T any](objA *T, objB T) {

	//If objA type is not a pointer to a struct, return
	if reflect.TypeOf(objA).Kind() != reflect.Ptr || reflect.TypeOf(objA).Elem().Kind() != reflect.Struct {
		return
	}

	if objA == nil {
		return
	}

	//Iterate over the fields of the object and set the value to the default value if the value is the zero value
	fields := reflect.TypeOf(objA).Elem()
	objAValue := reflect.ValueOf(objA).Elem()
	objBValue := reflect.ValueOf(objB)

	for i := 0; i < fields.NumField(); i++ {
		field := fields.Field(i)
		if objAValue.Field(i).Interface() == reflect.Zero(field.Type).Interface() {
			objAValue.Field(i).Set(objBValue.Field(i))
		}
	}
}
