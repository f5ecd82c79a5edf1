// Package handler exposes the company endpoints.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adonai404/imperial-fiscal/internal/api/responses"
	"github.com/adonai404/imperial-fiscal/internal/domain/company"
	"github.com/adonai404/imperial-fiscal/internal/domain/registry"
)

// CompanyHandler handles company CRUD, status and password endpoints
type CompanyHandler struct {
	svc      *company.Service
	registry *registry.Client
}

func NewCompanyHandler(svc *company.Service, registryClient *registry.Client) *CompanyHandler {
	return &CompanyHandler{svc: svc, registry: registryClient}
}

type companyPayload struct {
	Name         string  `json:"name" binding:"required"`
	CNPJ         *string `json:"cnpj"`
	Segmento     *string `json:"segmento"`
	SemMovimento bool    `json:"sem_movimento"`
}

type companyView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CNPJ         *string   `json:"cnpj,omitempty"`
	Segmento     *string   `json:"segmento,omitempty"`
	SemMovimento bool      `json:"sem_movimento"`
}

func toView(c *company.Company) companyView {
	return companyView{
		ID:           c.ID,
		Name:         c.Name,
		CNPJ:         c.CNPJ,
		Segmento:     c.Segmento,
		SemMovimento: c.SemMovimento,
	}
}

// List handles GET /companies with optional fuzzy ?q filtering
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.svc.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao listar empresas", err.Error())
		return
	}
	views := make([]companyView, 0, len(companies))
	for i := range companies {
		views = append(views, toView(&companies[i]))
	}
	responses.Success(c, views, "")
}

// Get handles GET /companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	found, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondCompanyError(c, err, "Erro ao buscar empresa")
		return
	}
	responses.Success(c, toView(found), "")
}

// Create handles POST /companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var payload companyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Nome da empresa é obrigatório")
		return
	}
	created, err := h.svc.Create(c.Request.Context(), company.CreateParams{
		Name:         payload.Name,
		CNPJ:         strOrEmpty(payload.CNPJ),
		Segmento:     strOrEmpty(payload.Segmento),
		SemMovimento: payload.SemMovimento,
	})
	if err != nil {
		respondCompanyError(c, err, "Erro ao criar empresa")
		return
	}
	responses.Created(c, toView(created), "Empresa criada com sucesso")
}

// Update handles PUT /companies/:id
func (h *CompanyHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload companyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Nome da empresa é obrigatório")
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), id, company.UpdateParams{
		Name:     payload.Name,
		CNPJ:     strOrEmpty(payload.CNPJ),
		Segmento: strOrEmpty(payload.Segmento),
	})
	if err != nil {
		respondCompanyError(c, err, "Erro ao atualizar empresa")
		return
	}
	responses.Success(c, toView(updated), "Empresa atualizada com sucesso")
}

type statusPayload struct {
	SemMovimento *bool `json:"sem_movimento" binding:"required"`
}

// UpdateStatus handles PATCH /companies/:id/status
func (h *CompanyHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload statusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Campo sem_movimento é obrigatório")
		return
	}
	if err := h.svc.UpdateStatus(c.Request.Context(), id, *payload.SemMovimento); err != nil {
		respondCompanyError(c, err, "Erro ao atualizar status")
		return
	}
	responses.Success(c, nil, "Status atualizado com sucesso")
}

// Delete handles DELETE /companies/:id. Fiscal records and the password
// record go together with the company.
func (h *CompanyHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondCompanyError(c, err, "Erro ao excluir empresa")
		return
	}
	responses.Success(c, nil, "Empresa excluída com sucesso")
}

type passwordPayload struct {
	Password string `json:"password" binding:"required"`
}

// SetPassword handles PUT /companies/:id/password
func (h *CompanyHandler) SetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload passwordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Senha é obrigatória")
		return
	}
	if err := h.svc.SetPassword(c.Request.Context(), id, payload.Password); err != nil {
		respondCompanyError(c, err, "Erro ao definir senha")
		return
	}
	responses.Success(c, nil, "Senha definida com sucesso")
}

// RemovePassword handles DELETE /companies/:id/password
func (h *CompanyHandler) RemovePassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.RemovePassword(c.Request.Context(), id); err != nil {
		respondCompanyError(c, err, "Erro ao remover senha")
		return
	}
	responses.Success(c, nil, "Senha removida com sucesso")
}

// VerifyPassword handles POST /companies/:id/password/verify. On success
// the returned token unlocks the company's fiscal views when sent back
// in the X-Company-Access header.
func (h *CompanyHandler) VerifyPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload passwordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Senha é obrigatória")
		return
	}
	token, err := h.svc.VerifyPassword(c.Request.Context(), id, payload.Password)
	if err != nil {
		if errors.Is(err, company.ErrWrongPassword) {
			responses.Error(c, http.StatusUnauthorized, "Senha incorreta")
			return
		}
		respondCompanyError(c, err, "Erro ao verificar senha")
		return
	}
	responses.Success(c, gin.H{"token": token}, "Acesso liberado")
}

// RegistryLookup handles GET /registry/:cnpj for add-company autofill
func (h *CompanyHandler) RegistryLookup(c *gin.Context) {
	digits := company.NormalizeCNPJ(c.Param("cnpj"))
	if len(digits) != 14 {
		responses.Error(c, http.StatusBadRequest, "CNPJ inválido")
		return
	}
	info, err := h.registry.GetByCNPJ(c.Request.Context(), digits)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			responses.Error(c, http.StatusNotFound, "CNPJ não encontrado na Receita")
			return
		}
		responses.Error(c, http.StatusBadGateway, "Falha ao consultar a Receita", err.Error())
		return
	}
	responses.Success(c, info, "")
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Identificador inválido")
		return uuid.Nil, false
	}
	return id, true
}

func respondCompanyError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, company.ErrNotFound):
		responses.Error(c, http.StatusNotFound, "Empresa não encontrada")
	case errors.Is(err, company.ErrNameRequired):
		responses.Error(c, http.StatusBadRequest, "Nome da empresa é obrigatório")
	default:
		responses.Error(c, http.StatusInternalServerError, message, err.Error())
	}
}
