package router

import "strings"

// Router matches an HTTP verb plus path against a table of registered
// templates. Templates are split into segments; a segment starting with ':'
// captures the corresponding path segment as a named parameter. Static
// segments win over parameter segments when both match.
//
// The table is built at startup and read-only afterwards, so lookups need
// no locking.
type Router struct {
	byMethod map[string][]*route
}

type route struct {
	pattern  string
	segments []string
	value    any
}

// New creates an empty router.
func New() *Router {
	return &Router{byMethod: make(map[string][]*route)}
}

// Add registers a value under method+pattern. Patterns must begin with '/'.
func (r *Router) Add(method, pattern string, value any) {
	if pattern == "" || pattern[0] != '/' {
		panic("router: pattern must begin with '/'")
	}
	rt := &route{
		pattern:  pattern,
		segments: splitPath(pattern),
		value:    value,
	}
	r.byMethod[method] = append(r.byMethod[method], rt)
}

// Find returns the value registered for method+path and any captured
// parameters, or nil if no route matches.
func (r *Router) Find(method, path string) (any, map[string]string) {
	routes := r.byMethod[method]
	if len(routes) == 0 {
		return nil, nil
	}

	segs := splitPath(path)

	var best *route
	var bestParams map[string]string
	bestStatic := -1

	for _, rt := range routes {
		params, static, ok := rt.match(segs)
		if !ok {
			continue
		}
		// Prefer the route with the most static segments (exact > param).
		if static > bestStatic {
			best = rt
			bestParams = params
			bestStatic = static
		}
	}

	if best == nil {
		return nil, nil
	}
	return best.value, bestParams
}

func (rt *route) match(segs []string) (map[string]string, int, bool) {
	if len(rt.segments) != len(segs) {
		return nil, 0, false
	}

	var params map[string]string
	static := 0

	for i, pat := range rt.segments {
		if strings.HasPrefix(pat, ":") {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[pat[1:]] = segs[i]
			continue
		}
		if pat != segs[i] {
			return nil, 0, false
		}
		static++
	}

	return params, static, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
