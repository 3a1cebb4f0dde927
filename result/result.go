// Package result - uniform success / failure container for fallible operations
package result

/*
Result a tagged outcome of a fallible operation. Exactly one of the value or the error is
meaningful: when the result is OK the error is nil, otherwise the value is the zero value.
*/
type Result[T any] struct {
	val T
	err *Error
}

// Void value type of results which carry no value
type Void struct{}

// OkVoid define a successful result without a value
func OkVoid() Result[Void] {
	return Result[Void]{}
}

/*
Ok define a successful result

	@param val T - the result value
	@returns the result
*/
func Ok[T any](val T) Result[T] {
	return Result[T]{val: val}
}

/*
Err define a failed result

	@param err *Error - the failure
	@returns the result
*/
func Err[T any](err *Error) Result[T] {
	if err == nil {
		err = Upstream(nil)
	}
	return Result[T]{err: err}
}

/*
FromError convert a Go style `(value, error)` pair into a result. Errors which are not
already `*Error` are treated as upstream failures.

	@param val T - the value
	@param err error - the error
	@returns the result
*/
func FromError[T any](val T, err error) Result[T] {
	if err != nil {
		return Err[T](AsError(err))
	}
	return Ok(val)
}

// IsOk whether the result is a success
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Val the result value. The zero value when the result is a failure.
func (r Result[T]) Val() T {
	return r.val
}

// Error the result failure. nil when the result is a success.
func (r Result[T]) Error() *Error {
	return r.err
}

/*
Unwrap split the result into Go style return values

	@returns the value and the error
*/
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.val, nil
}

/*
Forward re-type a failed result so it can be returned by a caller with a different value
type. Calling it on a successful result is a programming error and yields an upstream
failure.

	@param r Result[T] - the failed result
	@returns the failure carried as a Result[U]
*/
func Forward[U any, T any](r Result[T]) Result[U] {
	return Err[U](r.err)
}

/*
Collect merge a batch of results into one. The merged result is OK only if every element
is OK, in which case it carries the values in their original order. Otherwise it is the
first failure encountered.

	@param results []Result[T] - the batch
	@returns the merged result
*/
func Collect[T any](results []Result[T]) Result[[]T] {
	vals := make([]T, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			return Err[[]T](r.err)
		}
		vals = append(vals, r.val)
	}
	return Ok(vals)
}

/*
Map apply a conversion to each input, collecting the outcomes with the short-circuit rule
of Collect. Conversion stops at the first failure.

	@param inputs []I - the inputs
	@param convert func(I) Result[T] - the conversion
	@returns the merged result
*/
func Map[I any, T any](inputs []I, convert func(I) Result[T]) Result[[]T] {
	vals := make([]T, 0, len(inputs))
	for _, in := range inputs {
		r := convert(in)
		if r.err != nil {
			return Err[[]T](r.err)
		}
		vals = append(vals, r.val)
	}
	return Ok(vals)
}
