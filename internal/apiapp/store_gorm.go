package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
)

// Timestamps are stored as text, so writes go through UpdateColumns which
// skips gorm's time.Time callbacks.

type userModel struct {
	ID           int64  `json:"id" gorm:"primary_key"`
	Username     string `json:"username" gorm:"type:varchar(100);unique_index"`
	PasswordHash string `json:"password_hash"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	Role         string `json:"role" gorm:"type:varchar(20)"`
	BranchID     int64  `json:"branch_id"`
	Status       int    `json:"status"`
	CreatedAt    string `json:"created_at" gorm:"type:varchar(32)"`
	UpdatedAt    string `json:"updated_at" gorm:"type:varchar(32)"`
}

func (userModel) TableName() string { return tableUsers }

type tokenModel struct {
	Token     string `gorm:"primary_key;type:varchar(64)"`
	UserID    int64  `gorm:"index"`
	ExpiresAt int64  `gorm:"index"`
	CreatedAt int64
}

func (tokenModel) TableName() string { return tableTokens }

type branchModel struct {
	ID        int64  `json:"id" gorm:"primary_key"`
	Code      string `json:"code" gorm:"type:varchar(50);unique_index"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    int    `json:"status"`
	CreatedAt string `json:"created_at" gorm:"type:varchar(32)"`
	UpdatedAt string `json:"updated_at" gorm:"type:varchar(32)"`
}

func (branchModel) TableName() string { return tableBranches }

type employeeModel struct {
	ID            int64  `json:"id" gorm:"primary_key"`
	EmployeeCode  string `json:"employee_code" gorm:"type:varchar(50);unique_index"`
	Name          string `json:"name"`
	Mobile        string `json:"mobile"`
	Email         string `json:"email"`
	BranchID      int64  `json:"branch_id" gorm:"index"`
	DesignationID int64  `json:"designation_id"`
	Status        int    `json:"status"`
	CreatedAt     string `json:"created_at" gorm:"type:varchar(32)"`
	UpdatedAt     string `json:"updated_at" gorm:"type:varchar(32)"`
}

func (employeeModel) TableName() string { return tableEmployees }

type designationModel struct {
	ID          int64  `json:"id" gorm:"primary_key"`
	Designation string `json:"designation" gorm:"type:varchar(100);unique_index"`
	Status      int    `json:"status"`
	CreatedAt   string `json:"created_at" gorm:"type:varchar(32)"`
	UpdatedAt   string `json:"updated_at" gorm:"type:varchar(32)"`
}

func (designationModel) TableName() string { return tableDesignations }

type itemModel struct {
	ID        int64   `json:"id" gorm:"primary_key"`
	Name      string  `json:"name"`
	Category  string  `json:"category" gorm:"type:varchar(20)"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Status    int     `json:"status"`
	CreatedAt string  `json:"created_at" gorm:"type:varchar(32)"`
	UpdatedAt string  `json:"updated_at" gorm:"type:varchar(32)"`
}

func (itemModel) TableName() string { return tableItems }

// gormStore keeps the records in MySQL through gorm.
type gormStore struct {
	db *gorm.DB
}

func openGormStore(dsn string) (*gormStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("MYSQL_DSN is required when DB_DRIVER=mysql")
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse MYSQL_DSN: %w", err)
	}
	if parsed.Params == nil {
		parsed.Params = map[string]string{}
	}
	if _, ok := parsed.Params["charset"]; !ok {
		parsed.Params["charset"] = "utf8mb4"
	}
	db, err := gorm.Open("mysql", parsed.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	db.LogMode(false)
	return &gormStore{db: db}, nil
}

// gormModels returns a fresh model and a pointer to a slice of them for table.
func gormModels(table string) (any, any, error) {
	switch table {
	case tableUsers:
		return &userModel{}, &[]userModel{}, nil
	case tableBranches:
		return &branchModel{}, &[]branchModel{}, nil
	case tableEmployees:
		return &employeeModel{}, &[]employeeModel{}, nil
	case tableDesignations:
		return &designationModel{}, &[]designationModel{}, nil
	case tableItems:
		return &itemModel{}, &[]itemModel{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown table %q", table)
	}
}

func (s *gormStore) Init(ctx context.Context) error {
	err := s.db.AutoMigrate(
		&userModel{},
		&tokenModel{},
		&branchModel{},
		&employeeModel{},
		&designationModel{},
		&itemModel{},
	).Error
	if err != nil {
		return err
	}
	return s.db.Where("expires_at <= ?", time.Now().UTC().Unix()).Delete(&tokenModel{}).Error
}

func (s *gormStore) List(ctx context.Context, table string) ([]record, error) {
	_, rows, err := gormModels(table)
	if err != nil {
		return nil, err
	}
	if err := s.db.Order("id").Find(rows).Error; err != nil {
		return nil, err
	}
	return modelsToRecords(rows)
}

func (s *gormStore) Find(ctx context.Context, table, column string, value any) ([]record, error) {
	_, rows, err := gormModels(table)
	if err != nil {
		return nil, err
	}
	if err := s.db.Where(column+" = ?", value).Order("id").Find(rows).Error; err != nil {
		return nil, err
	}
	return modelsToRecords(rows)
}

func (s *gormStore) Get(ctx context.Context, table string, id int64) (record, error) {
	model, _, err := gormModels(table)
	if err != nil {
		return nil, err
	}
	if err := s.db.First(model, id).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, errNotFound
		}
		return nil, err
	}
	return modelToRecord(model)
}

func (s *gormStore) Insert(ctx context.Context, table string, values record) (int64, error) {
	model, _, err := gormModels(table)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(raw, model); err != nil {
		return 0, fmt.Errorf("decode %s row: %w", table, err)
	}
	if err := s.db.Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return 0, errConflict
		}
		return 0, err
	}
	rec, err := modelToRecord(model)
	if err != nil {
		return 0, err
	}
	return rec.integer("id"), nil
}

func (s *gormStore) Update(ctx context.Context, table string, id int64, changes record) error {
	if len(changes) == 0 {
		return nil
	}
	model, _, err := gormModels(table)
	if err != nil {
		return err
	}
	result := s.db.Model(model).Where("id = ?", id).UpdateColumns(map[string]any(changes))
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return errConflict
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed.
		if _, err := s.Get(ctx, table, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *gormStore) CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return s.db.Create(&tokenModel{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC().Unix(),
		CreatedAt: time.Now().UTC().Unix(),
	}).Error
}

func (s *gormStore) TokenUser(ctx context.Context, token string) (int64, error) {
	var row tokenModel
	if err := s.db.Where("token = ?", token).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, errNotFound
		}
		return 0, err
	}
	if time.Now().UTC().Unix() >= row.ExpiresAt {
		_ = s.DeleteToken(ctx, token)
		return 0, errNotFound
	}
	return row.UserID, nil
}

func (s *gormStore) DeleteToken(ctx context.Context, token string) error {
	return s.db.Where("token = ?", token).Delete(&tokenModel{}).Error
}

func (s *gormStore) Close() error {
	return s.db.Close()
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func modelToRecord(model any) (record, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func modelsToRecords(rows any) ([]record, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	out := []record{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
