package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr string
	// AllowedOrigins for CORS; browsers connecting to /ws must come
	// from one of these.
	AllowedOrigins []string
}

type Market struct {
	Symbol string
	// DepthLimit caps the number of price levels returned by depth
	// snapshots and WebSocket book broadcasts.
	DepthLimit int
}

type Storage struct {
	DataDir        string
	JournalEnabled bool
}

type Node struct {
	LogFile string
	// BookBroadcastInterval paces depth pushes to WebSocket
	// subscribers. Pushes are best-effort snapshots; subscribers see
	// some state no older than the last completed submission.
	BookBroadcastInterval time.Duration
}

type Config struct {
	API     API
	Market  Market
	Storage Storage
	Node    Node
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Market: Market{
			Symbol:     "BTC-USDT",
			DepthLimit: 10,
		},
		Storage: Storage{
			DataDir:        "data",
			JournalEnabled: true,
		},
		Node: Node{
			LogFile:               "data/matchd.log",
			BookBroadcastInterval: 250 * time.Millisecond,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}
	if sym := os.Getenv("SYMBOL"); sym != "" {
		cfg.Market.Symbol = sym
	}
	if depth := os.Getenv("DEPTH_LIMIT"); depth != "" {
		if n, err := strconv.Atoi(depth); err == nil && n > 0 {
			cfg.Market.DepthLimit = n
		}
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if journal := os.Getenv("JOURNAL_ENABLED"); journal != "" {
		cfg.Storage.JournalEnabled = journal == "true"
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Node.LogFile = logFile
	}
	if ms := os.Getenv("BOOK_BROADCAST_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			cfg.Node.BookBroadcastInterval = time.Duration(n) * time.Millisecond
		}
	}

	return cfg
}
