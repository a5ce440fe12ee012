package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"ceres/auth"
	"ceres/config"
	"ceres/distributor"
	"ceres/mailbox"
)

// Constants

// version is reported in the untagged ID response.
const version = "0.9.2"

// Functions

// initAuthenticator of the correct implementation specified
// in the config to be used in the distributor service.
func initAuthenticator(conf *config.Config) (auth.Authenticator, error) {

	switch conf.Distributor.AuthAdapter {

	case "AuthPostgres":

		sslmode := "disable"
		if conf.Distributor.AuthPostgres.UseTLS {
			sslmode = "require"
		}

		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			conf.Distributor.AuthPostgres.User,
			conf.Distributor.AuthPostgres.Password,
			conf.Distributor.AuthPostgres.IP,
			conf.Distributor.AuthPostgres.Port,
			conf.Distributor.AuthPostgres.Database,
			sslmode,
		)

		return auth.NewPostgresAuthenticator(context.Background(), connString)

	case "AuthFile":

		// Open authentication file and read user information.
		return auth.NewFileAuthenticator(
			conf.Distributor.AuthFile.File,
			conf.Distributor.AuthFile.Separator,
		)

	default: // AuthSQLite

		return auth.NewSQLiteAuthenticator(conf.Distributor.AuthSQLite.File)
	}
}

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// manageUsers performs the offline user management actions
// against the SQLite user store configured for the server.
func manageUsers(conf *config.Config, useradd string, userdel string, passwd string, password string) error {

	if conf.Distributor.AuthSQLite == nil {
		return fmt.Errorf("user management requires a [Distributor.AuthSQLite] section in the config")
	}

	store, err := auth.NewSQLiteAuthenticator(conf.Distributor.AuthSQLite.File)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {

	case useradd != "":

		if password == "" {
			return fmt.Errorf("adding user '%s' requires a -password", useradd)
		}

		return store.AddUser(useradd, password)

	case userdel != "":
		return store.RemoveUser(userdel)

	case passwd != "":

		if password == "" {
			return fmt.Errorf("changing the password of user '%s' requires a -password", passwd)
		}

		return store.ChangePassword(passwd, password)
	}

	return nil
}

func main() {

	var err error

	// Set usable CPUs to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flag that defines a config path.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	serverFlag := flag.Bool("server", false, "Append this flag to run the IMAP server.")
	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	useraddFlag := flag.String("useradd", "", "Add a user with the supplied name to the user store and exit.")
	userdelFlag := flag.String("userdel", "", "Remove the user with the supplied name from the user store and exit.")
	passwdFlag := flag.String("passwd", "", "Change the password of the user with the supplied name and exit.")
	passwordFlag := flag.String("password", "", "The password to set for -useradd or -passwd.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	// Read configuration from file.
	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to load the config", "err", err,
		)
		os.Exit(1)
	}

	// Offline user management runs without the server.
	if (*useraddFlag != "") || (*userdelFlag != "") || (*passwdFlag != "") {

		err := manageUsers(conf, *useraddFlag, *userdelFlag, *passwdFlag, *passwordFlag)
		if err != nil {
			level.Error(logger).Log(
				"msg", "failed to perform user management action",
				"err", err,
			)
			os.Exit(2)
		}

		return
	}

	if !*serverFlag {
		// If no flags were specified, print usage
		// and return with failure value.
		flag.Usage()
		os.Exit(9)
	}

	authenticator, err := initAuthenticator(conf)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize an authenticator",
			"err", err,
		)
		os.Exit(3)
	}

	store, err := mailbox.NewStore(conf.Mailbox.Root, conf.IMAP.HierarchySeparator)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize the mailbox store",
			"err", err,
		)
		os.Exit(4)
	}

	ceresMetrics := NewCeresMetrics(conf.Distributor.PrometheusAddr)

	var service distributor.Service
	service = distributor.NewService(logger, authenticator, store, distributor.NewRegistry(), conf, version)
	service = distributor.NewLoggingService(service, logger)
	service = distributor.NewMetricsService(service,
		ceresMetrics.Distributor.Logins,
		ceresMetrics.Distributor.Logouts,
		ceresMetrics.Distributor.Commands,
	)

	go runPromHTTP(logger, conf.Distributor.PrometheusAddr)

	listener, err := net.Listen("tcp", conf.Distributor.ListenMailAddr)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to open socket for incoming IMAP connections",
			"err", err,
		)
		os.Exit(5)
	}
	defer listener.Close()

	level.Info(logger).Log(
		"msg", "accepting IMAP connections",
		"addr", conf.Distributor.ListenMailAddr,
	)

	// Loop on incoming requests. The fully wrapped service
	// is handed back in so the middleware chain observes
	// every dispatched command.
	if err := service.Run(listener, service); err != nil {
		level.Error(logger).Log(
			"msg", "failed to run imap service",
			"err", err,
		)
		os.Exit(6)
	}
}
