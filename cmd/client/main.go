package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	pub "gitlab.com/dirk.krummacker/address-book/pkg/model"
)

// client sends authenticated requests to one address book service.
type client struct {
	baseURL string
	token   string
}

// Registers a throwaway user, then measures the average duration of POST, PUT, GET and DELETE
// requests on addresses in microseconds.
//
// Usage example on the command line:
// > go run main.go -port=8080
func main() {
	portPtr := flag.Int("port", 8080, "the port of the address book service")
	flag.Parse()

	c := &client{baseURL: fmt.Sprintf("http://localhost:%d", *portPtr)}
	c.login()

	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	sizes := []int{1000, 5000, 10000, 50000, 100000}
	jsonBody := []byte(`{
		"firstName": "Marcus",
		"lastName": "Antonius",
		"email": "marcus@antonius.it",
		"phone": "+39 999 777 555",
		"postalAddress": "Via Appia 1, Roma"
	}`)
	for _, loops := range sizes {
		firstID, _ := c.sendPostRequest(bytes.NewReader(jsonBody))
		fmt.Printf("%10d", loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				_, d := c.sendPostRequest(bytes.NewReader(jsonBody))
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PUT requests
			f := func(id int64) int64 {
				return c.sendPutGetDeleteRequest(id, http.MethodPut, bytes.NewReader(jsonBody))
			}
			callInLoop(firstID, loops, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				return c.sendPutGetDeleteRequest(id, http.MethodGet, nil)
			}
			callInLoop(firstID, loops, f)
		}
		{
			// DELETE requests
			f := func(id int64) int64 {
				return c.sendPutGetDeleteRequest(id, http.MethodDelete, nil)
			}
			callInLoop(firstID, loops, f)
		}
		c.sendPutGetDeleteRequest(firstID, http.MethodDelete, nil)
		fmt.Println()
	}
}

// login registers a user with a random name and keeps the bearer token of that user.
func (c *client) login() {
	username := "load-" + uuid.NewString()
	password := uuid.NewString()
	registration, _ := json.Marshal(pub.Registration{DisplayName: "Load Test", Username: username, Password: password})
	c.sendRequest(http.MethodPost, c.baseURL+"/register", bytes.NewReader(registration))

	credentials, _ := json.Marshal(pub.Credentials{Username: username, Password: password})
	resBody, _ := c.sendRequest(http.MethodPost, c.baseURL+"/login", bytes.NewReader(credentials))
	var token pub.Token
	if err := json.Unmarshal(resBody, &token); err != nil || token.Token == "" {
		fmt.Println("could not log in", string(resBody))
		panic(err)
	}
	c.token = token.Token
}

func callInLoop(firstID int64, loops int, f func(id int64) int64) {
	ids := createRandomSliceWithIDs(firstID+1, loops)
	var duration int64
	for _, id := range ids {
		d := f(id)
		duration += d
	}
	fmt.Printf("%10d", duration/int64(loops*1000))
}

func createRandomSliceWithIDs(firstID int64, loops int) []int64 {
	ids := make([]int64, 0, loops)
	for i := 0; i < loops; i++ {
		ids = append(ids, firstID+int64(i))
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

func (c *client) sendPostRequest(bodyReader io.Reader) (int64, int64) {
	resBody, duration := c.sendRequest(http.MethodPost, c.baseURL+"/addresses", bodyReader)
	var address model.Address
	err := json.Unmarshal(resBody, &address)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return address.Id, duration
}

func (c *client) sendPutGetDeleteRequest(id int64, method string, bodyReader io.Reader) int64 {
	requestURL := fmt.Sprintf("%s/addresses/%d", c.baseURL, id)
	_, duration := c.sendRequest(method, requestURL, bodyReader)
	return duration
}

func (c *client) sendRequest(method string, requestURL string, bodyReader io.Reader) ([]byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return resBody, after - before
}
