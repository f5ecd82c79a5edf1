// Package handler exposes the fiscal data endpoints: record CRUD, the
// derived dashboard views and the xlsx exports.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adonai404/imperial-fiscal/internal/access"
	"github.com/adonai404/imperial-fiscal/internal/api/responses"
	"github.com/adonai404/imperial-fiscal/internal/domain/company"
	"github.com/adonai404/imperial-fiscal/internal/domain/fiscal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AccessSetKey is the gin context key the access middleware stores the
// caller's unlocked company set under.
const AccessSetKey = "companyAccessSet"

// FiscalHandler handles fiscal record and dashboard endpoints
type FiscalHandler struct {
	svc      *fiscal.Service
	exporter *fiscal.Exporter
}

func NewFiscalHandler(svc *fiscal.Service, exporter *fiscal.Exporter) *FiscalHandler {
	return &FiscalHandler{svc: svc, exporter: exporter}
}

type recordPayload struct {
	Period  string  `json:"period" binding:"required"`
	RBT12   float64 `json:"rbt12"`
	Entrada float64 `json:"entrada"`
	Saida   float64 `json:"saida"`
	Imposto float64 `json:"imposto"`
}

func (p recordPayload) params() fiscal.RecordParams {
	return fiscal.RecordParams{
		Period:  p.Period,
		RBT12:   p.RBT12,
		Entrada: p.Entrada,
		Saida:   p.Saida,
		Imposto: p.Imposto,
	}
}

// Latest handles GET /fiscal-data/latest, the dashboard company list
// with each company's most recent period.
func (h *FiscalHandler) Latest(c *gin.Context) {
	result, err := h.svc.LatestPerCompany(c.Request.Context(), callerAccess(c))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao carregar dados fiscais", err.Error())
		return
	}
	responses.Success(c, result, "")
}

// CompanyData handles GET /companies/:id/fiscal-data
func (h *FiscalHandler) CompanyData(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	data, err := h.svc.CompanyData(c.Request.Context(), id, callerAccess(c))
	if err != nil {
		respondFiscalError(c, err, "Erro ao carregar dados da empresa")
		return
	}
	responses.Success(c, data, "")
}

// AddRecord handles POST /companies/:id/fiscal-data
func (h *FiscalHandler) AddRecord(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Período é obrigatório")
		return
	}
	rec, err := h.svc.Add(c.Request.Context(), id, payload.params())
	if err != nil {
		respondFiscalError(c, err, "Erro ao adicionar dados fiscais")
		return
	}
	responses.Created(c, rec, "Dados fiscais adicionados com sucesso")
}

// UpdateRecord handles PUT /fiscal-data/:id. All figures are
// overwritten; a missing field lands as zero.
func (h *FiscalHandler) UpdateRecord(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Período é obrigatório")
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), id, payload.params())
	if err != nil {
		respondFiscalError(c, err, "Erro ao atualizar dados fiscais")
		return
	}
	responses.Success(c, rec, "Dados fiscais atualizados com sucesso")
}

// DeleteRecord handles DELETE /fiscal-data/:id
func (h *FiscalHandler) DeleteRecord(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondFiscalError(c, err, "Erro ao excluir dados fiscais")
		return
	}
	responses.Success(c, nil, "Dados fiscais excluídos com sucesso")
}

// Evolution handles GET /fiscal-data/evolution
func (h *FiscalHandler) Evolution(c *gin.Context) {
	points, err := h.svc.Evolution(c.Request.Context(), callerAccess(c))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao calcular evolução", err.Error())
		return
	}
	responses.Success(c, points, "")
}

// CompanyEvolution handles GET /companies/:id/evolution
func (h *FiscalHandler) CompanyEvolution(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	points, err := h.svc.CompanyEvolution(c.Request.Context(), id, callerAccess(c))
	if err != nil {
		respondFiscalError(c, err, "Erro ao calcular evolução da empresa")
		return
	}
	responses.Success(c, points, "")
}

// Stats handles GET /stats
func (h *FiscalHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), callerAccess(c))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao calcular estatísticas", err.Error())
		return
	}
	responses.Success(c, stats, "")
}

// ExportCompany handles GET /companies/:id/fiscal-data/export
func (h *FiscalHandler) ExportCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.exporter.ExportCompany(c.Request.Context(), id, callerAccess(c))
	if err != nil {
		respondFiscalError(c, err, "Erro ao exportar dados da empresa")
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportAll handles GET /export
func (h *FiscalHandler) ExportAll(c *gin.Context) {
	data, filename, err := h.exporter.ExportAll(c.Request.Context(), callerAccess(c))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao exportar dados", err.Error())
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Template handles GET /export/template
func (h *FiscalHandler) Template(c *gin.Context) {
	data, filename, err := h.exporter.Template()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao gerar modelo", err.Error())
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// callerAccess reads the unlocked company set stored by the access
// middleware. A missing set means no companies are unlocked.
func callerAccess(c *gin.Context) access.Set {
	if v, ok := c.Get(AccessSetKey); ok {
		if set, ok := v.(access.Set); ok {
			return set
		}
	}
	return nil
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Identificador inválido")
		return uuid.Nil, false
	}
	return id, true
}

func respondFiscalError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, fiscal.ErrNotFound), errors.Is(err, company.ErrNotFound):
		responses.Error(c, http.StatusNotFound, "Registro não encontrado")
	case errors.Is(err, fiscal.ErrPeriodRequired):
		responses.Error(c, http.StatusBadRequest, "Período é obrigatório")
	case errors.Is(err, fiscal.ErrAccessDenied):
		responses.Error(c, http.StatusUnauthorized, "Empresa protegida por senha")
	default:
		responses.Error(c, http.StatusInternalServerError, message, err.Error())
	}
}
