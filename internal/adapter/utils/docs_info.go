//run redis
//docker run -p 6379:6379 -d redis

//layout model serving
//docker run -p 8501:8501 -v /storage/models:/models layout-model-server

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs

// @title           Layout Analysis API
// @version         1.0
// @description     Detects and classifies the layout segments of PDF documents.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package utils
