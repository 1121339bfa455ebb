package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
)

type ExportHandler struct {
	svc *consensus.Service
}

func NewExportHandler(svc *consensus.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

type winnersExport struct {
	SessionID   int64              `json:"sessionId"`
	Title       string             `json:"title"`
	GroupNumber string             `json:"groupNum"`
	Winners     []consensus.Winner `json:"winners"`
}

func (h *ExportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" && format != "md" && format != "markdown" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format. Use json, csv, or md"})
		return
	}

	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	winners, err := h.svc.Winners(c.Request.Context(), rc)
	if err != nil {
		respondError(c, err)
		return
	}
	export := winnersExport{
		SessionID:   rc.Session.ID,
		Title:       rc.Session.Title,
		GroupNumber: rc.Group.Label,
		Winners:     winners,
	}

	switch format {
	case "json":
		h.exportJSON(c, &export)
	case "csv":
		h.exportCSV(c, &export)
	default:
		h.exportMarkdown(c, &export)
	}
}

func (h *ExportHandler) exportJSON(c *gin.Context, export *winnersExport) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=session-%d-winners.json", export.SessionID))
	c.JSON(http.StatusOK, export)
}

func (h *ExportHandler) exportCSV(c *gin.Context, export *winnersExport) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	_ = writer.Write([]string{"Ranking", "Wallet", "Name", "Group"})
	for _, w := range export.Winners {
		_ = writer.Write([]string{
			strconv.Itoa(w.RankingValue),
			w.WalletAddress,
			w.Name,
			export.GroupNumber,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=session-%d-winners.csv", export.SessionID))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *ExportHandler) exportMarkdown(c *gin.Context, export *winnersExport) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)
	fmt.Fprintf(&buf, "**Session:** %d  \n**Group:** %s\n\n", export.SessionID, export.GroupNumber)

	buf.WriteString("| Ranking | Name | Wallet |\n|---|---|---|\n")
	for _, w := range export.Winners {
		fmt.Fprintf(&buf, "| %d | %s | `%s` |\n", w.RankingValue, w.Name, w.WalletAddress)
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=session-%d-winners.md", export.SessionID))
	c.Data(http.StatusOK, "text/markdown", buf.Bytes())
}
