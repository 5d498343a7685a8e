package handler

import (
	"errors"
	"net/http"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// Agents handles the public agent directory and profile management.
type Agents struct {
	agents   AgentStore
	listings ListingStore
	uploads  uploader
}

// NewAgents wires the agent handlers.
func NewAgents(agents AgentStore, listings ListingStore, store ObjectStore, maxFileBytes int64, maxFiles int) *Agents {
	return &Agents{
		agents:   agents,
		listings: listings,
		uploads:  uploader{store: store, maxFileBytes: maxFileBytes, maxFiles: maxFiles},
	}
}

// List returns active agent profiles, filtered and paginated.
func (h *Agents) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AgentFilter{
		Status: domain.StatusActive,
		City:   q.Get("city"),
		State:  q.Get("state"),
	}
	p := parsePage(r)

	agents, total, err := h.agents.Agents(r.Context(), f, p)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, agents, p, total)
}

// Get returns a single agent profile.
func (h *Agents) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent id.")
		return
	}
	agent, err := h.agents.AgentByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Agent not found.")
		return
	}
	writeData(w, http.StatusOK, agent)
}

// Listings returns an agent's active listings.
func (h *Agents) Listings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent id.")
		return
	}
	if _, err := h.agents.AgentByID(r.Context(), id); err != nil {
		writeDomainError(w, err, "Agent not found.")
		return
	}

	p := parsePage(r)
	listings, total, err := h.listings.Listings(r.Context(), domain.ListingFilter{
		AgentID: &id,
		Status:  domain.StatusActive,
	}, p)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, listings, p, total)
}

// Create registers the caller's agent profile. Accepts JSON or multipart
// with an optional profile_image file. One profile per user.
func (h *Agents) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	agent := domain.Agent{UserID: p.ID}
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.uploads.maxFileBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		agent.Agency = r.FormValue("agency")
		agent.Bio = r.FormValue("bio")
		agent.City = r.FormValue("city")
		agent.State = r.FormValue("state")

		img, err := h.uploads.file(r, "profile_image", p.ID)
		if err != nil {
			writeDomainError(w, err, "")
			return
		}
		agent.ProfileImage = img
	} else {
		var req struct {
			Agency       string `json:"agency"`
			Bio          string `json:"bio"`
			City         string `json:"city"`
			State        string `json:"state"`
			ProfileImage string `json:"profile_image"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		agent.Agency = req.Agency
		agent.Bio = req.Bio
		agent.City = req.City
		agent.State = req.State
		agent.ProfileImage = req.ProfileImage
	}

	fe := fieldErrors{}
	fe.require("agency", agent.Agency)
	fe.require("city", agent.City)
	fe.require("state", agent.State)
	if fe.write(w) {
		return
	}

	created, err := h.agents.CreateAgent(r.Context(), agent)
	if errors.Is(err, domain.ErrConflict) {
		writeError(w, http.StatusConflict, "Agent profile already exists for this user.")
		return
	}
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, created)
}

type agentUpdateRequest struct {
	Agency       *string `json:"agency"`
	Bio          *string `json:"bio"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	ProfileImage *string `json:"profile_image"`
}

// Update applies a partial update to an agent profile. The ownership guard
// has already established the caller may touch it.
func (h *Agents) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent id.")
		return
	}

	var req agentUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	agent, err := h.agents.UpdateAgent(r.Context(), id, postgres.AgentUpdate{
		Agency:       req.Agency,
		Bio:          req.Bio,
		City:         req.City,
		State:        req.State,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		writeDomainError(w, err, "Agent not found.")
		return
	}
	writeData(w, http.StatusOK, agent)
}

// Delete removes an agent profile.
func (h *Agents) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent id.")
		return
	}
	if err := h.agents.DeleteAgent(r.Context(), id); err != nil {
		writeDomainError(w, err, "Agent not found.")
		return
	}
	writeMessage(w, http.StatusOK, "Agent profile deleted successfully.")
}
