package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/service"
	"go.uber.org/zap"
)

// Search defaults.
const (
	defaultSearchPage = 0
	defaultSearchSize = 10
)

// RecipeHandler is the handler for recipe-related requests.
type RecipeHandler struct {
	Service *service.RecipeService
}

// NewRecipeHandler is the constructor function for initializing a new RecipeHandler.
func NewRecipeHandler(recipeService *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{Service: recipeService}
}

// SearchRecipes answers a text search from the store and kicks off
// generation of new recipes for the term in the background.
func (h *RecipeHandler) SearchRecipes(c *gin.Context) {
	page, err := parseIntQuery(c, "page", defaultSearchPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, err := parseIntQuery(c, "size", defaultSearchSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if size > service.MaxPageSize {
		size = service.MaxPageSize
	}

	term := c.Query("searchWord")
	recipes, err := h.Service.Search(c.Request.Context(), term, page, size)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			logger.FromContext(c).Error("failed to search recipes", zap.String("term", term), zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns a recipe by its public ID.
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	publicID := c.Param("public_id")

	recipe, err := h.Service.Get(c.Request.Context(), publicID)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			logger.FromContext(c).Error("failed to get recipe", zap.String("public_id", publicID), zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// BrowseRecipes lists recipes filtered by cook time, meal type and date.
func (h *RecipeHandler) BrowseRecipes(c *gin.Context) {
	minCook, err := parseOptionalIntQuery(c, "minCookTime")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxCook, err := parseOptionalIntQuery(c, "maxCookTime")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := parseIntQuery(c, "page", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, err := parseIntQuery(c, "size", service.DefaultBrowseSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipes, err := h.Service.Browse(c.Request.Context(), service.BrowseFilter{
		MinCookTime: minCook,
		MaxCookTime: maxCook,
		MealType:    c.Query("mealType"),
		DateFilter:  c.Query("dateFilter"),
		Page:        page,
		Size:        size,
	})
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			logger.FromContext(c).Error("failed to browse recipes", zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipes)
}

// ListMealTypes returns every meal type.
func (h *RecipeHandler) ListMealTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.MealTypes())
}

// ListDateFilters returns every date filter.
func (h *RecipeHandler) ListDateFilters(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.DateFilters())
}

// CreateRecipe stores a recipe supplied in the request body.
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var request service.CreateRecipeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	recipe, err := h.Service.Create(c.Request.Context(), request)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			logger.FromContext(c).Error("failed to create recipe", zap.String("name", request.Name), zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, recipe)
}

// DeleteRecipe removes a recipe by its public ID.
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	publicID := c.Param("public_id")

	if err := h.Service.Delete(c.Request.Context(), publicID); err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			logger.FromContext(c).Error("failed to delete recipe", zap.String("public_id", publicID), zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted"})
}

// EmailRecipe queues a recipe email to the address in the request body.
func (h *RecipeHandler) EmailRecipe(c *gin.Context) {
	publicID := c.Param("public_id")

	var request struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.Service.EmailRecipe(c.Request.Context(), request.Email, publicID); err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			logger.FromContext(c).Error("failed to email recipe", zap.String("public_id", publicID), zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Recipe email queued"})
}
