package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lulubrolive/server/internal/app"
	"github.com/lulubrolive/server/internal/service/room"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
		usage:        "Secret used to sign session tokens",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	creationKey = configVar[string]{
		envKey:       "SERVER_CREATION_KEY",
		flagKey:      "creation-key",
		defaultValue: room.DefaultCreationKey,
		usage:        "Key required to create a room",
	}
	messagesLimit = configVar[int]{
		envKey:       "SERVER_MESSAGES_LIMIT",
		flagKey:      "messages-limit",
		defaultValue: room.DefaultMessagesLimit,
		usage:        "Number of latest chat messages returned to members",
	}
	fetchVideoMeta = configVar[bool]{
		envKey:       "SERVER_FETCH_VIDEO_META",
		flagKey:      "fetch-video-meta",
		defaultValue: false,
		usage:        "Look up video titles on room creation",
	}
	allowedOrigins = configVar[[]string]{
		envKey:       "SERVER_ALLOWED_ORIGINS",
		flagKey:      "allowed-origins",
		defaultValue: []string{"*"},
		usage:        "Comma separated origins allowed for CORS and websockets",
	}
	storeDriver = configVar[string]{
		envKey:       "STORE_DRIVER",
		flagKey:      "store-driver",
		defaultValue: app.StoreRedis,
		usage:        "Room store: redis, postgres, mysql or sqlite",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	redisDB = configVar[int]{
		envKey:       "REDIS_DB",
		flagKey:      "redis-db",
		defaultValue: 0,
		usage:        "Redis database number",
	}
	dbHost = configVar[string]{
		envKey:       "DB_HOST",
		flagKey:      "db-host",
		defaultValue: "localhost",
		usage:        "SQL database host",
	}
	dbPort = configVar[int]{
		envKey:       "DB_PORT",
		flagKey:      "db-port",
		defaultValue: 5432,
		usage:        "SQL database port",
	}
	dbUser = configVar[string]{
		envKey:       "DB_USER",
		flagKey:      "db-user",
		defaultValue: "postgres",
		usage:        "SQL database user",
	}
	dbPassword = configVar[string]{
		envKey:       "DB_PASSWORD",
		flagKey:      "db-password",
		defaultValue: "",
		usage:        "SQL database password",
	}
	dbName = configVar[string]{
		envKey:       "DB_NAME",
		flagKey:      "db-name",
		defaultValue: "lulubrolive",
		usage:        "SQL database name",
	}
	dbSSLMode = configVar[string]{
		envKey:       "DB_SSL_MODE",
		flagKey:      "db-ssl-mode",
		defaultValue: "disable",
		usage:        "Postgres sslmode",
	}
	dbPath = configVar[string]{
		envKey:       "DB_PATH",
		flagKey:      "db-path",
		defaultValue: "lulubrolive.db",
		usage:        "SQLite database file",
	}
)

// bind registers v's env key and default with viper.
func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func stringFlag(v configVar[string]) {
	pflag.String(v.flagKey, v.defaultValue, v.usage)
	bind(v)
}

func intFlag(v configVar[int]) {
	pflag.Int(v.flagKey, v.defaultValue, v.usage)
	bind(v)
}

func boolFlag(v configVar[bool]) {
	pflag.Bool(v.flagKey, v.defaultValue, v.usage)
	bind(v)
}

func stringSliceFlag(v configVar[[]string]) {
	pflag.StringSlice(v.flagKey, v.defaultValue, v.usage)
	bind(v)
}

// splitList flattens comma separated entries, as env values arrive unsplit.
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}

	return result
}

func loadAppConfig() *app.AppConfig {
	for _, v := range []configVar[string]{secret, host, logLevel, creationKey, storeDriver, redisHost, redisPassword, dbHost, dbUser, dbPassword, dbName, dbSSLMode, dbPath} {
		stringFlag(v)
	}
	for _, v := range []configVar[int]{port, messagesLimit, redisPort, redisDB, dbPort} {
		intFlag(v)
	}
	boolFlag(fetchVideoMeta)
	stringSliceFlag(allowedOrigins)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	config := &app.AppConfig{
		Secret:         viper.GetString(secret.flagKey),
		Host:           viper.GetString(host.flagKey),
		Port:           viper.GetInt(port.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		CreationKey:    viper.GetString(creationKey.flagKey),
		MessagesLimit:  viper.GetInt(messagesLimit.flagKey),
		StoreDriver:    viper.GetString(storeDriver.flagKey),
		RedisHost:      viper.GetString(redisHost.flagKey),
		RedisPort:      viper.GetInt(redisPort.flagKey),
		RedisPassword:  viper.GetString(redisPassword.flagKey),
		RedisDB:        viper.GetInt(redisDB.flagKey),
		DBHost:         viper.GetString(dbHost.flagKey),
		DBPort:         viper.GetInt(dbPort.flagKey),
		DBUser:         viper.GetString(dbUser.flagKey),
		DBPassword:     viper.GetString(dbPassword.flagKey),
		DBName:         viper.GetString(dbName.flagKey),
		DBSSLMode:      viper.GetString(dbSSLMode.flagKey),
		DBPath:         viper.GetString(dbPath.flagKey),
		FetchVideoMeta: viper.GetBool(fetchVideoMeta.flagKey),
		AllowedOrigins: splitList(viper.GetStringSlice(allowedOrigins.flagKey)),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
