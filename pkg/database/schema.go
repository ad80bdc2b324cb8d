package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the clinic tables and indexes if they do not exist
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.WithComponent("database").Info("Creating database schema...")

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to create extension: %w", err)
	}

	tables := []string{
		createAccountsTable,
		createAppointmentsTable,
		createMedicalRecordsTable,
		createPrescriptionsTable,
		createInventoryTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.WithComponent("database").Info("Database schema created successfully")
	return nil
}

// SQL DDL statements for table creation
const (
	createAccountsTable = `
		CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL CHECK (role IN ('patient', 'doctor', 'pharmacist', 'admin')),
			is_approved BOOLEAN NOT NULL DEFAULT FALSE,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			date_of_birth DATE,
			gender VARCHAR(20) NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			specialization VARCHAR(100) NOT NULL DEFAULT '',
			license_number VARCHAR(100) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			patient_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			appointment_date TIMESTAMP WITH TIME ZONE NOT NULL,
			time_slot VARCHAR(10) NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			diagnosis TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			follow_up_date TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createMedicalRecordsTable = `
		CREATE TABLE IF NOT EXISTS medical_records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			patient_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			appointment_id UUID REFERENCES appointments(id) ON DELETE SET NULL,
			vital_signs JSONB NOT NULL DEFAULT '{}',
			diagnosis TEXT NOT NULL DEFAULT '',
			symptoms TEXT[] NOT NULL DEFAULT '{}',
			treatment TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			prescription_ids UUID[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPrescriptionsTable = `
		CREATE TABLE IF NOT EXISTS prescriptions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			patient_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			appointment_id UUID REFERENCES appointments(id) ON DELETE SET NULL,
			medical_record_id UUID REFERENCES medical_records(id) ON DELETE SET NULL,
			medications JSONB NOT NULL DEFAULT '[]',
			notes TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createInventoryTable = `
		CREATE TABLE IF NOT EXISTS inventory_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(200) NOT NULL,
			category VARCHAR(100) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			reorder_level INTEGER NOT NULL DEFAULT 0,
			unit_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
			expiry_date TIMESTAMP WITH TIME ZONE,
			supplier VARCHAR(200) NOT NULL DEFAULT '',
			last_updated_by UUID,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts(role);`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_id);`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_doctor_date ON appointments(doctor_id, appointment_date);`,
	// One live booking per doctor, day and slot. Cancelled bookings free the slot.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_live_slot
		ON appointments(doctor_id, appointment_date, time_slot) WHERE status <> 'cancelled';`,
	`CREATE INDEX IF NOT EXISTS idx_medical_records_patient ON medical_records(patient_id);`,
	`CREATE INDEX IF NOT EXISTS idx_medical_records_doctor ON medical_records(doctor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_patient ON prescriptions(patient_id);`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_doctor ON prescriptions(doctor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_category ON inventory_items(category);`,
}
