package app

import (
    "bufio"
    "errors"
    "os"
    "strings"
)

// LoadEnvFiles reads dotenv files of KEY=VALUE pairs into the process
// environment. Later files win over earlier ones, and values set here win
// over variables already present in the environment. Blank lines and lines
// starting with '#' are skipped; a leading "export " is tolerated. Values
// are taken literally, no expansion.
func LoadEnvFiles(paths ...string) error {
    for _, p := range paths {
        if strings.TrimSpace(p) == "" {
            continue
        }
        err := loadEnvFile(p)
        if errors.Is(err, os.ErrNotExist) {
            // Missing files are not fatal
            continue
        }
        if err != nil {
            return err
        }
    }
    return nil
}

func loadEnvFile(path string) error {
    f, err := os.Open(path)
    if err != nil {
        return err
    }
    defer f.Close()

    sc := bufio.NewScanner(f)
    for sc.Scan() {
        key, val, ok := parseEnvLine(sc.Text())
        if !ok {
            continue
        }
        _ = os.Setenv(key, val)
    }
    return sc.Err()
}

func parseEnvLine(line string) (key, val string, ok bool) {
    line = strings.TrimSpace(line)
    if line == "" || strings.HasPrefix(line, "#") {
        return "", "", false
    }
    line = strings.TrimPrefix(line, "export ")
    eq := strings.IndexByte(line, '=')
    if eq <= 0 {
        // malformed lines are skipped silently
        return "", "", false
    }
    key = strings.TrimSpace(line[:eq])
    val = strings.TrimSpace(line[eq+1:])
    if len(val) >= 2 {
        first, last := val[0], val[len(val)-1]
        if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
            val = val[1 : len(val)-1]
        }
    }
    return key, val, true
}
