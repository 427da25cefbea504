// Package httputil holds the handler contract and response envelope shared
// by the API handlers.
package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is one mounted API resource. Root is the resource's path
// prefix; SetRoutes receives the public, authenticated and admin router
// groups already scoped to that prefix.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
