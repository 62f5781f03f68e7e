package engine

// Middleware is an interceptor run before route matching. It may mutate the
// request through its setters and return (nil, nil) to pass it on to the
// next interceptor, or return a terminal response to short-circuit the
// pipeline: no further interceptors run, no route is matched, and the
// response is returned to the caller as-is. A returned error aborts the
// pipeline and is converted to a 500 response at the dispatcher boundary.
type Middleware func(*Request) (*Response, error)
