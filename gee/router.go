package gee

import (
	"sort"
	"strings"
)

type HandlerFunc func(*Context)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string
	Pattern string
}

// StaticRoot reports the first segment of the route when that segment is a literal,
// e.g. "healthz" for /healthz and "api" for /api/v1/urls. Single is true when the
// route has no further segments.
func (ri RouteInfo) StaticRoot() (segment string, single bool) {
	parts := parsePattern(ri.Pattern)
	if len(parts) == 0 || parts[0][0] == ':' || parts[0][0] == '*' {
		return "", false
	}
	return parts[0], len(parts) == 1
}

// roots 按方法分树：roots["GET"]；handlers 的 key 是 "GET-/api/v1/urls/:token"。
type router struct {
	roots    map[string]*node
	handlers map[string][]HandlerFunc
}

func newRouter() *router {
	return &router{
		handlers: make(map[string][]HandlerFunc),
		roots:    make(map[string]*node),
	}
}

// parsePattern 去掉空段；* 之后的段全部归 * 参数。
func parsePattern(pattern string) []string {
	vs := strings.Split(pattern, "/")

	parts := make([]string, 0, len(vs))
	for _, item := range vs {
		if item != "" {
			parts = append(parts, item)
			if item[0] == '*' {
				break
			}
		}
	}
	return parts
}

func (r *router) addRoute(method string, pattern string, handlers ...HandlerFunc) {
	if len(handlers) == 0 {
		panic("gee: addRoute requires at least one handler")
	}
	root, ok := r.roots[method]
	if !ok {
		root = &node{}
		r.roots[method] = root
	}
	root.insert(pattern, parsePattern(pattern), 0)
	r.handlers[method+"-"+pattern] = append([]HandlerFunc(nil), handlers...)
}

func (r *router) getRoute(method string, path string) (*node, map[string]string) {
	root, ok := r.roots[method]
	if !ok {
		return nil, nil
	}
	searchParts := parsePattern(path)
	n := root.search(searchParts, 0)
	if n == nil {
		return nil, nil
	}

	params := make(map[string]string)
	for index, part := range n.parts {
		if part[0] == ':' {
			params[part[1:]] = searchParts[index]
		}
		if part[0] == '*' && len(part) > 1 {
			params[part[1:]] = strings.Join(searchParts[index:], "/")
			break
		}
	}
	return n, params
}

func (r *router) routes() []RouteInfo {
	var out []RouteInfo
	for method, root := range r.roots {
		var nodes []*node
		root.travel(&nodes)
		for _, n := range nodes {
			out = append(out, RouteInfo{Method: method, Pattern: n.pattern})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (r *router) handle(c *Context) {
	n, params := r.getRoute(c.Method, c.Path)
	if n != nil {
		c.Params = params
		c.RoutePattern = n.pattern
		c.handlers = append(c.handlers, r.handlers[c.Method+"-"+n.pattern]...)
	} else {
		allow := r.AllowedMethod(c.Path)
		if len(allow) == 0 {
			c.handlers = append(c.handlers, c.engine.noRoute...)
		} else {
			c.SetHeader("Allow", strings.Join(allow, ","))
			c.handlers = append(c.handlers, c.engine.noMethod...)
		}
	}
	c.Next()
}

// AllowedMethod lists the methods that have a route matching path, sorted.
func (r *router) AllowedMethod(path string) (allow []string) {
	for method := range r.roots {
		if n, _ := r.getRoute(method, path); n != nil {
			allow = append(allow, method)
		}
	}
	sort.Strings(allow)
	return allow
}
