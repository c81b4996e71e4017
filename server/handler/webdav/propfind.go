package webdav

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/objstore"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
	"github.com/xxxsen/dsdav/server/model"
	"go.uber.org/zap"
)

const (
	dirContentType  = "httpd/unix-directory"
	fileContentType = "application/octet-stream"
	statusOK        = "HTTP/1.1 200 OK"
)

// Depth is not honored, a collection always lists its direct children.
func (h *WebdavHandler) handlePropfind(c *gin.Context) {
	ctx := c.Request.Context()
	location, ok := h.buildVisiblePath(c)
	if !ok {
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	ds.Invalidate(ctx, location)
	base, err := ds.Stat(ctx, location)
	if err != nil {
		httpkit.Fail(c, statusOf(err), fmt.Errorf("stat location failed, location:%s, err:%w", location, err))
		return
	}
	now := time.Now()
	if !base.IsDir() {
		h.writeDavResponse(c, h.buildFileMultistatus(base, now))
		return
	}
	ents, err := ds.List(ctx, location)
	if err != nil {
		httpkit.Fail(c, statusOf(err), fmt.Errorf("list location failed, location:%s, err:%w", location, err))
		return
	}
	h.writeDavResponse(c, h.buildMultistatus(location, ents, now))
}

func (h *WebdavHandler) href(p string, isDir bool) string {
	root := strings.TrimSuffix(h.root, "/")
	href := root + "/" + pathkit.Encode(p)
	if isDir && !strings.HasSuffix(href, "/") {
		href += "/"
	}
	return href
}

func newResponse(href string, prop model.Prop) *model.Response {
	return &model.Response{
		Href: href,
		Propstat: model.Propstat{
			Prop:   prop,
			Status: statusOK,
		},
	}
}

func (h *WebdavHandler) dirResponse(p string, now time.Time) *model.Response {
	return newResponse(h.href(p, true), model.Prop{
		ResourceType: model.ResourceType{Collection: &struct{}{}},
		ContentType:  dirContentType,
		DisplayName:  path.Base(p),
		LastModified: httpkit.FormatTime(now),
	})
}

func (h *WebdavHandler) fileResponse(ent *objstore.Entry, now time.Time) *model.Response {
	mtime := ent.ModTime
	if mtime.IsZero() {
		mtime = now
	}
	return newResponse(h.href(ent.Name, false), model.Prop{
		ContentType:   fileContentType,
		ContentLength: strconv.FormatInt(ent.Size, 10),
		DisplayName:   path.Base(ent.Name),
		LastModified:  httpkit.FormatTime(mtime),
	})
}

// buildMultistatus lists the collection itself, then its directories, then its files.
func (h *WebdavHandler) buildMultistatus(location string, ents []*objstore.Entry, now time.Time) *model.Multistatus {
	ms := &model.Multistatus{XMLNS: "DAV:"}
	ms.Responses = append(ms.Responses, newResponse(h.href(location, true), model.Prop{
		ResourceType: model.ResourceType{Collection: &struct{}{}},
		DisplayName:  pathkit.Base(location),
		LastModified: httpkit.FormatTime(now),
	}))
	dirs := make([]*objstore.Entry, 0, len(ents))
	files := make([]*objstore.Entry, 0, len(ents))
	for _, ent := range ents {
		if ent.IsDir() {
			dirs = append(dirs, ent)
			continue
		}
		files = append(files, ent)
	}
	objstore.SortEntries(dirs)
	objstore.SortEntries(files)
	for _, ent := range dirs {
		ms.Responses = append(ms.Responses, h.dirResponse(ent.Name, now))
	}
	for _, ent := range files {
		ms.Responses = append(ms.Responses, h.fileResponse(ent, now))
	}
	return ms
}

func (h *WebdavHandler) buildFileMultistatus(ent *objstore.Entry, now time.Time) *model.Multistatus {
	return &model.Multistatus{
		XMLNS:     "DAV:",
		Responses: []*model.Response{h.fileResponse(ent, now)},
	}
}

func (h *WebdavHandler) writeDavResponse(c *gin.Context, ms *model.Multistatus) {
	raw, err := xml.Marshal(ms)
	if err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("encode multistatus failed, err:%w", err))
		return
	}
	body := append([]byte(xml.Header), raw...)
	c.Data(http.StatusMultiStatus, "application/xml; charset=utf-8", body)
	logutil.GetLogger(c.Request.Context()).Debug("propfind finished", zap.Int("entry_count", len(ms.Responses)))
}
