package tabledefinition

import (
	"strings"
)

// Mapper converts a source data type into a target warehouse data type.
type Mapper interface {
	Map(inputDataType string) (output string)
}

// DataTypeLink maps a source data type to a target data type.
type DataTypeLink struct {
	SourceDataType string `json:"sourceDataType" mapstructure:"source"`
	TargetDataType string `json:"targetDataType" mapstructure:"target"`
}

// dataTypeMap implements interface Mapper.
type dataTypeMap struct {
	mapTypes map[string]string
	fallback string
}

func newDataTypeMapper(types []DataTypeLink, fallback string) dataTypeMap {
	dtm := dataTypeMap{fallback: fallback}
	dtm.mapTypes = make(map[string]string, len(types))
	for _, row := range types { // for each data type link...
		dtm.mapTypes[normaliseType(row.SourceDataType)] = row.TargetDataType
	}
	return dtm
}

// Map will normalise inputDataType and use it to return the output from map mapTypes.
// Unknown data types map to the fallback type so the function is total.
func (o dataTypeMap) Map(inputDataType string) (output string) {
	v, ok := o.mapTypes[normaliseType(inputDataType)]
	if !ok {
		return o.fallback
	}
	return v
}

func normaliseType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const (
	BigQueryFallbackDataType  = "STRING"
	SnowflakeFallbackDataType = "VARCHAR"
)

// CanvasToBigQueryDataTypeMapping contains a mapping of Canvas Data types to BigQuery types.
// Integer types load as FLOAT64 so that values the dump cannot represent as integers do not fail the load job.
var CanvasToBigQueryDataTypeMapping = []DataTypeLink{
	{SourceDataType: "bigint", TargetDataType: "FLOAT64"},
	{SourceDataType: "boolean", TargetDataType: "BOOLEAN"},
	{SourceDataType: "date", TargetDataType: "STRING"},
	{SourceDataType: "datetime", TargetDataType: "DATE"},
	{SourceDataType: "double precision", TargetDataType: "FLOAT64"},
	{SourceDataType: "enum", TargetDataType: "STRING"},
	{SourceDataType: "guid", TargetDataType: "STRING"},
	{SourceDataType: "int", TargetDataType: "FLOAT64"},
	{SourceDataType: "integer", TargetDataType: "FLOAT64"},
	{SourceDataType: "text", TargetDataType: "STRING"},
	{SourceDataType: "timestamp", TargetDataType: "TIMESTAMP"},
	{SourceDataType: "varchar", TargetDataType: "STRING"},
}

// CanvasToSnowflakeDataTypeMapping contains a mapping of Canvas Data types to Snowflake types.
var CanvasToSnowflakeDataTypeMapping = []DataTypeLink{
	{SourceDataType: "bigint", TargetDataType: "FLOAT"},
	{SourceDataType: "boolean", TargetDataType: "BOOLEAN"},
	{SourceDataType: "date", TargetDataType: "VARCHAR"},
	{SourceDataType: "datetime", TargetDataType: "DATE"},
	{SourceDataType: "double precision", TargetDataType: "FLOAT"},
	{SourceDataType: "enum", TargetDataType: "VARCHAR"},
	{SourceDataType: "guid", TargetDataType: "VARCHAR"},
	{SourceDataType: "int", TargetDataType: "FLOAT"},
	{SourceDataType: "integer", TargetDataType: "FLOAT"},
	{SourceDataType: "text", TargetDataType: "VARCHAR"},
	{SourceDataType: "timestamp", TargetDataType: "TIMESTAMP_NTZ"},
	{SourceDataType: "varchar", TargetDataType: "VARCHAR"},
}

// NewCanvasToBigQueryDataTypeMapper returns a Mapper for BigQuery load schemas.
// Overrides are applied on top of the defaults, keyed by source data type.
func NewCanvasToBigQueryDataTypeMapper(overrides map[string]string) Mapper {
	return newDataTypeMapper(withOverrides(CanvasToBigQueryDataTypeMapping, overrides), BigQueryFallbackDataType)
}

// NewCanvasToSnowflakeDataTypeMapper returns a Mapper for Snowflake DDL.
func NewCanvasToSnowflakeDataTypeMapper(overrides map[string]string) Mapper {
	return newDataTypeMapper(withOverrides(CanvasToSnowflakeDataTypeMapping, overrides), SnowflakeFallbackDataType)
}

func withOverrides(defaults []DataTypeLink, overrides map[string]string) []DataTypeLink {
	retval := make([]DataTypeLink, 0, len(defaults)+len(overrides))
	retval = append(retval, defaults...)
	for src, tgt := range overrides { // later entries win in newDataTypeMapper.
		if strings.TrimSpace(tgt) == "" {
			continue
		}
		retval = append(retval, DataTypeLink{SourceDataType: src, TargetDataType: strings.ToUpper(strings.TrimSpace(tgt))})
	}
	return retval
}

// FieldDefinition is a column translated into the target warehouse type system.
type FieldDefinition struct {
	Name        string
	DataType    string
	Description string
}

// BuildFieldSchema translates the columns of a table using mapper, preserving column order.
func BuildFieldSchema(cols TableColumns, mapper Mapper) []FieldDefinition {
	retval := make([]FieldDefinition, len(cols.Columns))
	for idx, c := range cols.Columns {
		retval[idx] = FieldDefinition{Name: c.ColName, DataType: mapper.Map(c.DataType), Description: c.Description}
	}
	return retval
}
