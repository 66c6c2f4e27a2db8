package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/LayoutAPI/internal/adapter"
	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/api"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/layout"
	"github.com/akolanti/LayoutAPI/internal/modelstore"
	"github.com/akolanti/LayoutAPI/internal/pdfimages"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

const (
	formFile             = "file"
	formXmlFileName      = "xml_file_name"
	formExtractionFormat = "extraction_format"
	formKeepPDF          = "keep_pdf"
	xmlFileNameParam     = "xml_file_name"
)

var (
	logRH    *logger_i.Logger = logger_i.NewLogger("RequestHandler")
	analyzer AnalyzeDependencies
)

// AnalyzeDependencies are the collaborators of the analysis endpoints.
type AnalyzeDependencies struct {
	Layout     layout.Service
	Config     *config.Config
	ModelReady func() bool
}

func InitAnalyzeHandler(deps AnalyzeDependencies) {
	analyzer = deps
}

type newJobData struct {
	id         string
	traceId    string
	uploadPath string
	form       api.AnalyzeForm
}

var (
	AnalyzeHandler      = CatchErrors("analyze_pdf", noSuchFileMessage, analyzePdf)
	AnalyzeAsyncHandler = CatchErrors("analyze_pdf_async", noSuchFileMessage, analyzePdfAsync)
	GetXmlHandler       = CatchErrors("get_xml", noXmlFileMessage, getXml)
)

// analyzePdf godoc
// @Summary      Analyse a PDF
// @Description  Runs the layout pipeline synchronously and returns the segments in reading order.
// @Tags         Layout
// @Accept       multipart/form-data
// @Produce      json
// @Param        file               formData  file    true   "The PDF to analyse"
// @Param        xml_file_name      formData  string  false  "Save the extracted text layer as this XML file"
// @Param        extraction_format  formData  string  false  "Table format: markdown, html or latex"
// @Param        keep_pdf           formData  bool    false  "Keep the uploaded PDF after processing"
// @Success      200  {array}   layoutModel.SegmentBox
// @Failure      400  {object}  api.JobResponse  "Bad form data"
// @Failure      404  {object}  api.JobResponse  "Missing input"
// @Failure      422  {object}  api.JobResponse  "Processing failed"
// @Router       /analyze [post]
func analyzePdf(w http.ResponseWriter, r *http.Request) error {
	if !validateContext(r.Context()) {
		return r.Context().Err()
	}
	form, content, ok := parseAnalyzeForm(w, r, analyzer.Config.Server.MaxUploadBytes)
	if !ok {
		return nil
	}

	segments, err := analyzer.Layout.AnalyzePDF(r.Context(), layout.Request{
		Content:          content,
		FileName:         form.FileName,
		XmlFileName:      form.XmlFileName,
		ExtractionFormat: form.ExtractionFormat,
		KeepPDF:          form.KeepPDF,
	})
	if err != nil {
		return err
	}
	writeJsonResponse(w, http.StatusOK, segments)
	return nil
}

// analyzePdfAsync godoc
// @Summary      Queue a PDF for analysis
// @Description  Saves the upload, queues a background job and returns its id.
// @Tags         Layout
// @Accept       multipart/form-data
// @Produce      json
// @Param        file               formData  file    true   "The PDF to analyse"
// @Param        xml_file_name      formData  string  false  "Save the extracted text layer as this XML file"
// @Param        extraction_format  formData  string  false  "Table format: markdown, html or latex"
// @Param        keep_pdf           formData  bool    false  "Keep the uploaded PDF after processing"
// @Success      202  {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400  {object}  api.JobResponse      "Bad form data"
// @Failure      422  {object}  api.JobResponse      "Processing failed"
// @Router       /analyze/async [post]
func analyzePdfAsync(w http.ResponseWriter, r *http.Request) error {
	if !validateContext(r.Context()) {
		return r.Context().Err()
	}
	form, content, ok := parseAnalyzeForm(w, r, analyzer.Config.Server.MaxUploadBytes)
	if !ok {
		return nil
	}

	id := utils.GetNewUUID()
	uploads := analyzer.Config.Paths.Uploads
	if err := os.MkdirAll(uploads, 0750); err != nil {
		return err
	}
	uploadPath := filepath.Join(uploads, id+".pdf")
	if err := os.WriteFile(uploadPath, content, 0640); err != nil {
		return err
	}

	CreateNewJob(newJobData{
		id:         id,
		traceId:    traceIdFrom(r.Context()),
		uploadPath: uploadPath,
		form:       form,
	})
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(id))
	return nil
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the status of an analysis job, with its segments once complete.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceIdFrom(r.Context()))
	logRH.Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	response := adapter.ToAPIResponse(result, nil)
	if result.Status == jobModel.JobStatusComplete {
		segments, err := GetJobSegments(r.Context(), idString)
		if err != nil {
			logRH.Error("Failed to read job segments", "jobId", idString, "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, idString, "Could not read job result")
			return
		}
		response = adapter.ToAPIResponse(result, segments)
	}
	writeJsonResponse(w, http.StatusOK, response)
}

// getXml godoc
// @Summary      Get the XML of an analysed PDF
// @Description  Returns the text layer saved under xml_file_name by a previous analysis.
// @Tags         Layout
// @Produce      xml
// @Param        xml_file_name  path  string  true  "Name given at analysis time"
// @Success      200  {string}  string
// @Failure      404  {object}  api.JobResponse  "No xml file"
// @Router       /xml/{xml_file_name} [get]
func getXml(w http.ResponseWriter, r *http.Request) error {
	name := utils.GetChiURLParam(r, xmlFileNameParam)
	data, err := pdfimages.LoadXML(analyzer.Config.Paths.Xmls, name)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logRH.Error("Error writing xml response", "error", err)
	}
	return nil
}

// HealthHandler godoc
// @Summary      Service health
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := api.HealthResponse{Status: "ok"}
	if analyzer.Config != nil {
		response.ModelsLoaded = modelstore.AreModelsDownloaded(analyzer.Config)
	}
	if analyzer.ModelReady != nil {
		response.ModelReady = analyzer.ModelReady()
	}
	writeJsonResponse(w, http.StatusOK, response)
}
