package mockapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
)

// board returns the user's category map, creating an empty one. Callers hold
// s.mu.
func (s *Server) board(uid string) grid.Categories {
	cats, ok := s.grids[uid]
	if !ok {
		cats = grid.Categories{grid.HomeKey: {}}
		s.grids[uid] = cats
	}
	return cats
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cats := s.board(userID(r)).Clone()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleSaveGrid(w http.ResponseWriter, r *http.Request) {
	var cats grid.Categories
	if err := decode(r, &cats); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grid data.")
		return
	}
	if _, ok := cats[grid.HomeKey]; !ok {
		writeError(w, http.StatusBadRequest, "Invalid grid data.")
		return
	}
	s.mu.Lock()
	s.grids[userID(r)] = cats
	s.mu.Unlock()
	writeMessage(w, "Grid saved successfully!")
}

type addItemBody struct {
	Item           grid.Item `json:"item"`
	ParentCategory string    `json:"parentCategory"`
}

// handleAddItem assigns the server id. A category keeps the key the client
// proposed unless it is missing or already taken.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemBody
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item data.")
		return
	}
	if strings.TrimSpace(req.Item.Label) == "" {
		writeError(w, http.StatusBadRequest, "Label is required.")
		return
	}
	parent := req.ParentCategory
	if parent == "" {
		parent = grid.HomeKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cats := s.board(userID(r))
	if _, ok := cats[parent]; !ok {
		writeError(w, http.StatusNotFound, "Parent category not found.")
		return
	}
	item := req.Item
	item.ID = uuid.NewString()
	if c, ok := item.Variant.(grid.Category); ok {
		if _, taken := cats[c.Target]; c.Target == "" || taken {
			c.Target = uuid.NewString()
		}
		item.Variant = c
		cats[c.Target] = []grid.Item{}
	}
	cats[parent] = append(cats[parent], item)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch grid.Patch
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid update data.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cats := s.board(userID(r))
	loc, ok := cats.FindItemByID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found.")
		return
	}
	cats[loc.Parent][loc.Index] = patch.Apply(loc.Item)
	writeMessage(w, "Item updated successfully!")
}

type deleteItemBody struct {
	CategoryTarget string `json:"categoryTarget"`
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	var req deleteItemBody
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid delete request.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cats := s.board(userID(r))
	loc, ok := cats.FindItemByID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found.")
		return
	}
	cats[loc.Parent] = slices.Delete(slices.Clone(cats[loc.Parent]), loc.Index, loc.Index+1)
	if req.CategoryTarget != "" {
		cats.RemoveSubtree(req.CategoryTarget)
	}
	writeMessage(w, "Item deleted successfully!")
}

// -- pictogram search --

type searchBody struct {
	Icons []client.Pictogram `json:"icons"`
	Total int                `json:"total"`
}

// catalog is a small offline stand-in for the ARASAAC index.
var catalog = []client.Pictogram{
	pictogram(2527, "pizza"),
	pictogram(2458, "mamma", "madre"),
	pictogram(2462, "papà", "padre"),
	pictogram(4610, "cibo", "mangiare"),
	pictogram(6456, "mangiare", "pranzo"),
	pictogram(6061, "bere", "acqua"),
	pictogram(2248, "acqua"),
	pictogram(29951, "camminare"),
	pictogram(5441, "volere"),
	pictogram(32648, "aiutare", "aiuto"),
	pictogram(7141, "leggere", "libro"),
	pictogram(36480, "essere"),
	pictogram(32761, "avere"),
	pictogram(35547, "felice", "contento"),
	pictogram(35545, "triste"),
	pictogram(6632, "io"),
	pictogram(6625, "tu"),
	pictogram(8255, "casa"),
	pictogram(3082, "scuola"),
	pictogram(2349, "mela", "frutta"),
	pictogram(2419, "gatto"),
	pictogram(7202, "cane"),
	pictogram(38351, "famiglia"),
	pictogram(39091, "emozioni"),
}

func pictogram(id int, keywords ...string) client.Pictogram {
	p := client.Pictogram{ID: id}
	for _, k := range keywords {
		p.Keywords = append(p.Keywords, client.Keyword{Keyword: k})
	}
	return p
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 50 {
		limit = 10
	}
	var hits []client.Pictogram
	for _, p := range catalog {
		if slices.ContainsFunc(p.Keywords, func(k client.Keyword) bool {
			return strings.Contains(k.Keyword, query)
		}) {
			hits = append(hits, p)
		}
	}
	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	writeJSON(w, http.StatusOK, searchBody{Icons: hits, Total: total})
}
