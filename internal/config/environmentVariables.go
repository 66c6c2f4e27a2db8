package config

import (
	"time"
)

const (
	TRACE_ID_KEY = "traceId"

	//used when redis init fails and fallback is enabled
	FALLBACK_REDIS_TO_INTERNALSTORE = true

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 4
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobTimeout                      = 10 * time.Minute

	//serverTimeouts
	//analysis is synchronous on /analyze so writes need a long deadline
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = 10 * time.Minute
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 30 * time.Second

	//server listening port
	ServerListenAddr = ":3000"
	MaxUploadBytes   = 64 << 20

	//job requests buffer limit
	BufferLimit = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore    = 0
	RedisResultStore = 1

	RedisJobStoreTTL    = 24 * time.Hour
	RedisResultStoreTTL = 24 * time.Hour

	//dataset registration
	PredictDatasetName = "predict_data"
	AnnotationFileName = "test.json"
	PredictionsFile    = "coco_instances_results.json"
	LastCheckpointFile = "last_checkpoint"

	//word grid embedding
	DefaultVocabSize      = 30522
	DefaultHiddenSize     = 768
	DefaultEmbeddingDim   = 64
	DefaultStride         = 4
	DefaultCheckpointID   = "layoutlm-base-uncased"
	DefaultCheckpointFile = "model.safetensors"
	DefaultVocabFile      = "vocab.txt"

	//layout model
	DefaultModelName        = "doclaynet"
	VGTModelSuffix          = "_VGT_model.pth"
	DefaultServingURL       = "http://127.0.0.1:8501"
	DefaultScoreThreshold   = 0.2
	DefaultOverlapThreshold = 0.8
	DefaultMinSizeTest      = 800
	DefaultMaxSizeTest      = 1333
	ModelRequestTimeout     = 120 * time.Second
	ModelMaxRetries         = 3

	VGTDownloadURL       = "https://github.com/AlibabaResearch/AdvancedLiterateMachinery/releases/download/v1.3.0-VGT-release"
	EmbeddingDownloadURL = "https://huggingface.co/microsoft/layoutlm-base-uncased/resolve/main"

	DefaultModelsPath = "/storage/models"
	DefaultDataRoot   = "./data"

	SweepInterval = 10 * time.Minute
	SweepMaxAge   = 1 * time.Hour
)
