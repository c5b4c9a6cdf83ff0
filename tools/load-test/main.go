package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"presence.service/internal/api/middleware"
)

// Every simulated employee fires its geolocation check-ins at the same time.
// The service must answer exactly one 201 per employee and 200 for the rest.
func main() {
	// Configuration
	url := "http://localhost:8080/api/v1/attendance/geo/check-in"
	if base := os.Getenv("API_URL"); base != "" {
		url = base + "/api/v1/attendance/geo/check-in"
	}
	secret := os.Getenv("JWT_SECRET") // empty: rely on IS_LOCAL_DEV header auth
	payload := []byte(`{"latitude": 18.4331, "longitude": 73.8871}`)

	numEmployees := 2000
	requestsPerEmployee := 3
	totalRequests := numEmployees * requestsPerEmployee
	concurrency := 50 // Number of concurrent employees to avoid local port exhaustion

	fmt.Printf("Starting load test: %d employees (%d simultaneous check-ins each) to %s with concurrency %d\n",
		numEmployees, requestsPerEmployee, url, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var created, alreadyMarked, failed, employeesWithDuplicates int64

	startTime := time.Now()

	for i := 0; i < numEmployees; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		employeeID := fmt.Sprintf("load-test-emp-%d", i)

		go func(empID string) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			auth, err := authHeaders(empID, secret)
			if err != nil {
				atomic.AddInt64(&failed, int64(requestsPerEmployee))
				return
			}

			var inner sync.WaitGroup
			var wins int64
			for j := 0; j < requestsPerEmployee; j++ {
				inner.Add(1)
				go func() {
					defer inner.Done()
					req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")
					for k, v := range auth {
						req.Header.Set(k, v)
					}
					resp, err := http.DefaultClient.Do(req)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						return
					}
					defer resp.Body.Close()

					switch resp.StatusCode {
					case http.StatusCreated:
						atomic.AddInt64(&created, 1)
						atomic.AddInt64(&wins, 1)
					case http.StatusOK:
						atomic.AddInt64(&alreadyMarked, 1)
					default:
						atomic.AddInt64(&failed, 1)
					}
				}()
			}
			inner.Wait()
			if wins > 1 {
				atomic.AddInt64(&employeesWithDuplicates, 1)
			}
		}(employeeID)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration:  %v\n", duration)
	fmt.Printf("Total Requests:  %d\n", totalRequests)
	fmt.Printf("Created (201):   %d\n", created)
	fmt.Printf("Already marked:  %d\n", alreadyMarked)
	fmt.Printf("Failed:          %d\n", failed)
	fmt.Printf("Double check-ins: %d\n", employeesWithDuplicates)
	fmt.Printf("Requests/Sec:    %.2f\n", float64(totalRequests)/duration.Seconds())
}

func authHeaders(employeeID, secret string) (map[string]string, error) {
	if secret == "" {
		return map[string]string{"X-Employee-Id": employeeID, "X-Role": "employee"}, nil
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: "employee",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}
