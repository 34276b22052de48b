package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"mise/internal/importer"
	applog "mise/internal/log"
	"mise/internal/recipes"
	"mise/models"
)

type importResponse struct {
	Recipe  recipeResponse      `json:"recipe"`
	Link    *recipes.LinkResult `json:"link,omitempty"`
	Warning string              `json:"warning,omitempty"`
}

// importRecipe runs the upload-to-recipe pipeline: derive text from the
// upload, extract a structured recipe (directly for spreadsheets, through the
// AI client for everything else), match it against the inventory, save it,
// then attempt the menu-item link. The link is best-effort: the recipe commit
// stands even when linking fails, the failure comes back as a warning.
func importRecipe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	if err := r.ParseMultipartForm(importer.MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		applog.Error(ctx, "failed to parse import form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "upload is too large or invalid")
		return
	}

	nameHint := strings.TrimSpace(r.FormValue("name"))
	rawText := strings.TrimSpace(r.FormValue("text"))

	fileName, fileBytes, fileType, err := readRecipeUpload(r)
	if err != nil {
		applog.Error(ctx, "recipe upload read failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to read the uploaded file")
		return
	}

	source := models.SourceManual
	if len(fileBytes) > 0 {
		source = importer.SourceTypeFromMime(fileType)
	}

	// Spreadsheets are structured enough to parse directly.
	if source == models.SourceSpreadsheet {
		extraction, err := importer.ParseSpreadsheet(nameHint, fileBytes)
		if err != nil {
			applog.Debug(ctx, "spreadsheet parse failed", "error", err, "file", fileName)
			saveImportOutcome(w, r, importer.FailedImport(nameHint, source, err))
			return
		}
		buildAndSave(w, r, extraction, source)
		return
	}

	var base64Payload string
	if len(fileBytes) > 0 {
		processed, encoded, convErr := importer.DeriveText(fileBytes, fileType)
		if convErr != nil {
			applog.Error(ctx, "failed to derive recipe text", "error", convErr, "mime", fileType)
			saveImportOutcome(w, r, importer.FailedImport(nameHint, source, convErr))
			return
		}
		if strings.TrimSpace(processed) != "" {
			if rawText != "" {
				rawText += "\n\n"
			}
			rawText += processed
		} else if encoded != "" {
			base64Payload = encoded
		}
	}

	if strings.TrimSpace(rawText) == "" && base64Payload == "" {
		writeJSONError(w, http.StatusBadRequest, "provide recipe text or upload a document")
		return
	}

	if importClient == nil {
		applog.Debug(ctx, "import requested without extraction client")
		writeJSONError(w, http.StatusServiceUnavailable, "recipe extraction is not configured")
		return
	}

	extraction, err := importClient.ExtractRecipe(ctx, importer.Input{
		NameHint:   nameHint,
		RawText:    rawText,
		Base64File: base64Payload,
		FileName:   fileName,
		FileType:   fileType,
	})
	if err != nil {
		applog.Error(ctx, "recipe extraction failed", "error", err)
		saveImportOutcome(w, r, importer.FailedImport(nameHint, source, err))
		return
	}

	buildAndSave(w, r, extraction, source)
}

func buildAndSave(w http.ResponseWriter, r *http.Request, extraction importer.Extraction, source models.SourceType) {
	ctx := r.Context()

	var inventory []models.InventoryItem
	if err := database.WithContext(ctx).Preload("Aliases").Preload("Units").Find(&inventory).Error; err != nil {
		applog.Error(ctx, "failed to load inventory for import", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory")
		return
	}

	saveImportOutcome(w, r, importer.BuildRecipe(extraction, inventory, source))
}

func saveImportOutcome(w http.ResponseWriter, r *http.Request, recipe *models.Recipe) {
	ctx := r.Context()

	if err := recipeService.Save(ctx, recipe); err != nil {
		writeRecipeError(w, r, err)
		return
	}

	response := importResponse{}
	link, err := recipeService.LinkMenuItem(ctx, recipe)
	if err != nil {
		applog.Error(ctx, "menu item link failed after import", "error", err, "recipeID", recipe.ID)
		response.Warning = "recipe saved, but it could not be linked to a menu item"
	} else {
		response.Link = link
	}
	response.Recipe = projectRecipe(recipe)

	applog.Debug(ctx, "recipe imported", "recipeID", recipe.ID, "status", recipe.Status, "issues", len(recipe.Issues))
	writeJSON(w, http.StatusCreated, response)
}

func readRecipeUpload(r *http.Request) (string, []byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil, "", nil
		}
		return "", nil, "", err
	}
	defer file.Close()

	if header.Size > importer.MaxUploadSize {
		return "", nil, "", errors.New("file exceeds the upload limit")
	}

	buf := bytes.NewBuffer(make([]byte, 0, header.Size))
	if _, err := io.Copy(buf, file); err != nil {
		return "", nil, "", err
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = importer.MimeTypeFromName(header.Filename)
	}

	return header.Filename, buf.Bytes(), mime, nil
}
