package snowflake

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/helper"
	sf "github.com/snowflakedb/gosnowflake"
)

const dsnScheme = "snowflake://"

// ConnectionDetails are the parts of a Snowflake DSN.
type ConnectionDetails struct {
	Account   string `errorTxt:"Snowflake account" mandatory:"yes"`
	DBName    string `errorTxt:"Snowflake db name" mandatory:"yes"`
	Schema    string `errorTxt:"Snowflake schema" mandatory:"yes"`
	User      string `errorTxt:"Snowflake username" mandatory:"yes"`
	Password  string `errorTxt:"Snowflake password" mandatory:"yes"`
	Warehouse string `errorTxt:"Snowflake warehouse"`
	RoleName  string `errorTxt:"Snowflake role name"`
}

// String masks the password.
func (d ConnectionDetails) String() string {
	return fmt.Sprintf("%v:%v@%v/%v?schema=%v&warehouse=%v&role=%v",
		d.User,
		"xxxxxxx",
		d.Account,
		d.DBName,
		d.Schema,
		d.Warehouse,
		d.RoleName,
	)
}

// GetDSN constructs a DSN from d, prefixed with 'snowflake://'.
func GetDSN(d ConnectionDetails) (string, error) {
	if err := helper.ValidateStructIsPopulated(d); err != nil {
		return "", err
	}
	dsn, err := sf.DSN(&sf.Config{
		Account:   d.Account,
		Database:  d.DBName,
		Schema:    d.Schema,
		User:      d.User,
		Password:  d.Password,
		Warehouse: d.Warehouse,
		Role:      d.RoleName,
	})
	if err != nil {
		return "", errors.Wrap(err, "error building Snowflake DSN")
	}
	if !strings.HasPrefix(dsn, dsnScheme) {
		dsn = dsnScheme + dsn
	}
	return dsn, nil
}

// ParseDSN converts a DSN with the 'snowflake://' prefix into connection details.
func ParseDSN(d string) (ConnectionDetails, error) {
	if !strings.HasPrefix(d, dsnScheme) {
		return ConnectionDetails{}, errors.New("unsupported Snowflake DSN format: expected prefix " + dsnScheme)
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(d, dsnScheme))
	if err != nil {
		return ConnectionDetails{}, errors.Wrap(err, "error parsing Snowflake DSN")
	}
	retval := ConnectionDetails{
		User:      cfg.User,
		Password:  cfg.Password,
		Schema:    cfg.Schema,
		DBName:    cfg.Database,
		Account:   cfg.Account,
		RoleName:  cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Region != "" && !strings.Contains(retval.Account, ".") {
		retval.Account = fmt.Sprintf("%v.%v", retval.Account, cfg.Region)
	}
	return retval, nil
}
