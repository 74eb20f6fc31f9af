package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/gbfs-nearby/internal/middleware"
)

// digestTestHandler sends the digest in the background so the caller is not held up by
// the email provider.
func (a *API) digestTestHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	// Outlives the request but keeps its trace.
	ctx := context.WithoutCancel(c.Request.Context())
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.digest.Run(ctx)
	}()

	logger.InfoContext(c, "digest queued")
	c.JSON(202, gin.H{"status": "queued"})
}
