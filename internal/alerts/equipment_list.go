package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleetorbit/fleetorbit-api/internal/db"
	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"gorm.io/gorm"
)

// EquipmentFilter narrows the equipment listing. All fields compose with AND
// except GlobalUnitNumber, which expands to an OR across the two unit-number
// fields and replaces the narrower UnitNumber/CustomerUnitNumber filters.
type EquipmentFilter struct {
	UnitNumber         string // Substring on unit_number.
	CustomerUnitNumber string // Substring on customer_unit_number.
	GlobalUnitNumber   string // Substring OR-matched across both unit-number fields.

	Length string // Substring on length.
	Width  string // Substring on width.
	Height string // Substring on height.

	EquipmentTypeID  int64  // Exact equipment type.
	Make             string // Substring on OEM make.
	Model            string // Substring on OEM model name.
	Year             int    // Exact model year.
	ManufacturerCode string // Substring on manufacturer code.
	ManufacturerName string // Substring on manufacturer name.
	VendorName       string // Substring on IoT vendor name.

	AlertCategoryID int64 // Restrict to units targeted by rules in this category.
}

// EquipmentRow is an equipment listing row with its lookup joins flattened.
type EquipmentRow struct {
	ID                 uint64 `json:"id"`
	UnitNumber         string `json:"unit_number"`
	CustomerUnitNumber string `json:"customer_unit_number"`
	Description        string `json:"description"`
	Length             string `json:"length"`
	Width              string `json:"width"`
	Height             string `json:"height"`
	Year               *int   `json:"year"`
	EquipmentTypeName  string `json:"equipment_type_name"`
	OemMake            string `json:"oem_make"`
	OemModelName       string `json:"oem_model_name"`
	ManufacturerCode   string `json:"manufacturer_code"`
	ManufacturerName   string `json:"manufacturer_name"`
	DeviceSerialNumber string `json:"device_serial_number"`
	VendorName         string `json:"vendor_name"`
}

// ListEquipment returns the in-scope equipment with classification, OEM,
// manufacturer and IoT device/vendor lookups joined.
func (r *Resolver) ListEquipment(ctx context.Context, scope RuleScope, filter EquipmentFilter, page, perPage int) ([]EquipmentRow, int64, error) {
	accountIDs, err := r.scopeAccountIDs(ctx, scope)
	if err != nil {
		return nil, 0, err
	}
	if len(accountIDs) == 0 {
		return []EquipmentRow{}, 0, nil
	}

	var total int64
	if errCount := r.equipmentQuery(ctx, accountIDs, filter).
		Distinct("equipment.id").
		Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("alerts: count equipment: %w", errCount)
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}

	var rows []EquipmentRow
	if errFind := r.equipmentQuery(ctx, accountIDs, filter).
		Distinct().
		Select(`equipment.id, equipment.unit_number, equipment.customer_unit_number, equipment.description,
			equipment.length, equipment.width, equipment.height, equipment.year,
			et.name AS equipment_type_name, om.make AS oem_make, om.name AS oem_model_name,
			mf.code AS manufacturer_code, mf.name AS manufacturer_name,
			dv.serial_number AS device_serial_number, vn.name AS vendor_name`).
		Order("equipment.unit_number ASC").
		Offset((page - 1) * perPage).Limit(perPage).
		Scan(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("alerts: list equipment: %w", errFind)
	}
	return rows, total, nil
}

// equipmentQuery builds the joined, filtered equipment query. It is built
// fresh for the count and the page fetch.
func (r *Resolver) equipmentQuery(ctx context.Context, accountIDs []int64, filter EquipmentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Joins("JOIN equipment_assignments ea ON ea.equipment_id = equipment.id").
		Joins("LEFT JOIN equipment_types et ON et.id = equipment.equipment_type_id").
		Joins("LEFT JOIN oem_models om ON om.id = equipment.oem_model_id").
		Joins("LEFT JOIN manufacturers mf ON mf.id = equipment.manufacturer_id").
		Joins("LEFT JOIN iot_devices dv ON dv.id = equipment.device_id").
		Joins("LEFT JOIN iot_vendors vn ON vn.id = dv.vendor_id").
		Where("ea.account_id IN ?", accountIDs)

	like := func(column, value string) {
		query = query.Where(db.CaseInsensitiveLikeExpr(r.db, column), db.NormalizeLikePattern(r.db, "%"+value+"%"))
	}

	if strings.TrimSpace(filter.GlobalUnitNumber) != "" {
		pattern := db.NormalizeLikePattern(r.db, "%"+filter.GlobalUnitNumber+"%")
		query = query.Where(
			db.CaseInsensitiveLikeExpr(r.db, "equipment.unit_number")+" OR "+db.CaseInsensitiveLikeExpr(r.db, "equipment.customer_unit_number"),
			pattern, pattern,
		)
	} else {
		if filter.UnitNumber != "" {
			like("equipment.unit_number", filter.UnitNumber)
		}
		if filter.CustomerUnitNumber != "" {
			like("equipment.customer_unit_number", filter.CustomerUnitNumber)
		}
	}
	if filter.Length != "" {
		like("equipment.length", filter.Length)
	}
	if filter.Width != "" {
		like("equipment.width", filter.Width)
	}
	if filter.Height != "" {
		like("equipment.height", filter.Height)
	}
	if filter.EquipmentTypeID > 0 {
		query = query.Where("equipment.equipment_type_id = ?", filter.EquipmentTypeID)
	}
	if filter.Make != "" {
		like("om.make", filter.Make)
	}
	if filter.Model != "" {
		like("om.name", filter.Model)
	}
	if filter.Year > 0 {
		query = query.Where("equipment.year = ?", filter.Year)
	}
	if filter.ManufacturerCode != "" {
		like("mf.code", filter.ManufacturerCode)
	}
	if filter.ManufacturerName != "" {
		like("mf.name", filter.ManufacturerName)
	}
	if filter.VendorName != "" {
		like("vn.name", filter.VendorName)
	}
	if filter.AlertCategoryID > 0 {
		query = query.Where(
			"EXISTS (SELECT 1 FROM alert_rules ar WHERE ar.alert_category_id = ? AND ar.is_deleted = ? AND "+
				db.JSONArrayContainsColumnExpr(r.db, "ar.equipment_ids", "equipment.id")+")",
			filter.AlertCategoryID, false,
		)
	}
	return query
}
