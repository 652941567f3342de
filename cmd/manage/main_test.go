package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
- model: contactos.contacto
  pk: 1
  fields:
    nombre: Ana
    correo: ana@example.com
    telefono: "600"
    fecha_creacion: 2024-03-15 10:00:00+00:00
- model: contactos.contacto
  pk: 2
  fields:
    nombre: Luis
    correo: luis@example.com
    fecha_creacion: 2024-03-14 09:00:00+00:00
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite:///"+filepath.Join(dir, "contactos.db"))
	t.Setenv("LANGUAGE_CODE", "es")
	t.Setenv("TIME_ZONE", "UTC")
	return dir
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out))
	return out.String()
}

func TestManage_MigrateLoadExport(t *testing.T) {
	dir := setupEnv(t)

	assert.Contains(t, runCLI(t, "migrate"), "Migrations applied.")

	path := filepath.Join(dir, "contactos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	assert.Contains(t, runCLI(t, "loaddata", path), "Installed 2 object(s) from 1 fixture(s)")

	out := runCLI(t, "export")
	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Nombre,Email,Teléfono,Fecha de Creación", lines[0])
	assert.Equal(t, "Ana,ana@example.com,600,2024-03-15 10:00:00+00:00", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Luis,"))

	csvPath := filepath.Join(dir, "luis.csv")
	assert.Contains(t, runCLI(t, "export", "--search", "luis", "--output", csvPath), "Exported 1 contact(s)")
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\r\n"))
}

func TestManage_ExportRejectsUnknownFilter(t *testing.T) {
	setupEnv(t)
	runCLI(t, "migrate")

	var out bytes.Buffer
	err := run(context.Background(), []string{"export", "--filter", "siempre"}, &out)
	assert.ErrorContains(t, err, "unknown date range")
}

func TestManage_CreateSuperuser(t *testing.T) {
	setupEnv(t)
	runCLI(t, "migrate")

	out := runCLI(t, "createsuperuser", "--username", "root", "--email", "root@example.com", "--password", "s3cretpass")
	assert.Contains(t, out, `Superuser "root" created successfully.`)

	var buf bytes.Buffer
	err := run(context.Background(), []string{"createsuperuser", "--username", "root", "--email", "root@example.com", "--password", "s3cretpass"}, &buf)
	assert.Error(t, err)
}

func TestManage_LoaddataRequiresExistingFile(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"loaddata", filepath.Join(t.TempDir(), "missing.yaml")}, &out)
	assert.Error(t, err)
}
