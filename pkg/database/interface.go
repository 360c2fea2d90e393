package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// 存储层哨兵错误，处理器据此映射响应状态
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("duplicate value")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrInUse            = errors.New("record is referenced by other records")
	ErrAlreadyMember    = errors.New("user is already a member of this group")
	ErrNotMember        = errors.New("user is not a member of this group")
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 商品目录
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// 客户
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, id int64, patch models.CustomerPatch) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error

	// 订单
	ListOrders(ctx context.Context) ([]models.OrderView, error)
	GetOrder(ctx context.Context, id int64) (*models.OrderView, error)
	// CreateOrder validates both references and computes the total in one transaction.
	CreateOrder(ctx context.Context, in models.OrderInput) (*models.OrderView, error)
	UpdateOrder(ctx context.Context, id int64, patch models.OrderPatch) (*models.OrderView, error)
	DeleteOrder(ctx context.Context, id int64) error
	CountOrders(ctx context.Context) (int, error)

	// 用户
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	// CreateUser inserts the user and enrolls it in groupNames atomically.
	CreateUser(ctx context.Context, user *models.User, groupNames []string) error
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	CountUsers(ctx context.Context) (int, error)

	// 用户组与成员关系
	ListGroups(ctx context.Context) ([]models.Group, error)
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	GetGroupByName(ctx context.Context, name string) (*models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	UpdateGroup(ctx context.Context, id int64, patch models.GroupPatch) (*models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	ListGroupMembers(ctx context.Context, groupID int64) ([]models.GroupMember, error)
	AddMember(ctx context.Context, groupID, userID int64) (*models.Membership, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error
	GroupNamesForUser(ctx context.Context, userID int64) ([]string, error)
	CountMemberships(ctx context.Context) (int, error)

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string // "sqlite" 或 "postgres"
	SQLitePath   string
	PostgresDSN  string
	Seed         bool
	DefaultGroup string
	Debug        bool

	Logger *logrus.Logger
}

// ConfigFromApp 由应用配置构造数据库配置
func ConfigFromApp(cfg *config.Config, log *logrus.Logger) DatabaseConfig {
	return DatabaseConfig{
		Driver:       cfg.DBDriver,
		SQLitePath:   cfg.DBPath,
		PostgresDSN:  cfg.PostgresDSN,
		Seed:         cfg.SeedData,
		DefaultGroup: cfg.DefaultGroup,
		Debug:        cfg.Debug,
		Logger:       log,
	}
}

// NewDatabase 根据配置选择数据库实现，并完成建表与种子数据
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	log := config.logger()

	var (
		store *SQLDatabase
		err   error
	)
	switch config.Driver {
	case "", "sqlite":
		log.WithField("path", config.SQLitePath).Info("Using SQLite database")
		store, err = NewSQLiteDatabase(config)
	case "postgres":
		if isVercelEnvironment() {
			log.Info("Detected serverless environment, using PostgreSQL")
		} else {
			log.Info("Using PostgreSQL database")
		}
		store, err = NewPostgresDatabase(config)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c DatabaseConfig) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l
}

// isVercelEnvironment 内部检查 Vercel 环境
func isVercelEnvironment() bool {
	return os.Getenv("VERCEL_ENV") != "" ||
		os.Getenv("VERCEL_URL") != "" ||
		os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
