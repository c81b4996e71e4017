package webdav

import "net/http"

// AllowMethods 按OPTIONS中返回的顺序排列, 未实现的方法统一返回405
var AllowMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPut,
	"PROPFIND",
	"PROPPATCH",
	"MKCOL",
	http.MethodDelete,
	"COPY",
	"MOVE",
	"LOCK",
	"UNLOCK",
	http.MethodOptions,
}
