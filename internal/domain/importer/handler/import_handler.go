// Package handler exposes the spreadsheet upload endpoints.
package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adonai404/imperial-fiscal/internal/api/responses"
	"github.com/adonai404/imperial-fiscal/internal/domain/company"
	importservice "github.com/adonai404/imperial-fiscal/internal/domain/importer/service"
)

// ImportHandler handles multipart spreadsheet uploads
type ImportHandler struct {
	svc *importservice.Service
}

func NewImportHandler(svc *importservice.Service) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// ImportFile handles POST /import, the bulk multi-company upload
func (h *ImportHandler) ImportFile(c *gin.Context) {
	file, filename, ok := openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.svc.ImportFile(c.Request.Context(), file, filename)
	if err != nil {
		respondImportError(c, err)
		return
	}
	responses.Success(c, result, fmt.Sprintf("%d registro(s) importado(s)", result.Imported))
}

// ImportCompanyFile handles POST /companies/:id/fiscal-data/import, the
// single-company upload where rows carry only periods and figures.
func (h *ImportHandler) ImportCompanyFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Identificador inválido")
		return
	}

	file, filename, ok := openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.svc.ImportCompanyFile(c.Request.Context(), id, file, filename)
	if err != nil {
		respondImportError(c, err)
		return
	}
	responses.Success(c, result, fmt.Sprintf("%d registro(s) importado(s)", result.Imported))
}

func openUpload(c *gin.Context) (multipart.File, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo (.csv, .xls, .xlsx) não encontrado ou inválido")
		return nil, "", false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".xls" && ext != ".xlsx" {
		responses.Error(c, http.StatusBadRequest, fmt.Sprintf("Extensão de arquivo não suportada: %s", ext))
		return nil, "", false
	}

	file, err := header.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo enviado")
		return nil, "", false
	}
	return file, header.Filename, true
}

func respondImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importservice.ErrNoValidRows):
		responses.Error(c, http.StatusUnprocessableEntity, "Nenhuma linha válida encontrada no arquivo")
	case errors.Is(err, company.ErrNotFound):
		responses.Error(c, http.StatusNotFound, "Empresa não encontrada")
	default:
		responses.Error(c, http.StatusInternalServerError, "Erro ao importar o arquivo", err.Error())
	}
}
