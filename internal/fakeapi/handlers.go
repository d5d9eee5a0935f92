package fakeapi

import (
	"net/http"
	"strconv"

	"railctl/internal/binding"
	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/resources"

	"github.com/gin-gonic/gin"
	ginbind "github.com/gin-gonic/gin/binding"
)

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// fail maps an error onto a status: validation failures are 400, API
// errors keep their status and everything else is a 500.
func fail(c *gin.Context, err error) {
	if errors.IsValidation(err) {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if status, ok := errors.APIStatus(err); ok {
		abort(c, status, err.Error())
		return
	}
	abort(c, http.StatusInternalServerError, "internal error")
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "invalid id "+strconv.Quote(c.Param("id")))
		return 0, false
	}
	return id, true
}

// routes groups a collection's endpoints by who may call them.
type routes struct {
	read  *gin.RouterGroup
	write *gin.RouterGroup
	// create overrides write for POST when set.
	create *gin.RouterGroup
}

// mount registers the REST surface of one collection.
func mount[T console.Entity, P any](srv *Server, r routes, coll *collection[T, P]) {
	s := srv.store
	base := "/" + coll.name

	r.read.GET(base, func(c *gin.Context) {
		s.mu.RLock()
		items, err := coll.query(c.Request.URL.Query())
		s.mu.RUnlock()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	r.read.GET(base+"/count", func(c *gin.Context) {
		s.mu.RLock()
		items, err := coll.query(c.Request.URL.Query())
		s.mu.RUnlock()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(items)})
	})

	if coll.label != nil {
		r.read.GET(base+"/names", func(c *gin.Context) {
			s.mu.RLock()
			items := coll.all()
			s.mu.RUnlock()
			names := make([]string, 0, len(items))
			for _, it := range items {
				names = append(names, coll.label(it))
			}
			c.JSON(http.StatusOK, names)
		})
	}

	r.read.GET(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		s.mu.RLock()
		item := coll.find(id)
		s.mu.RUnlock()
		if item == nil {
			abort(c, http.StatusNotFound, coll.name+" "+itoa(id)+" not found")
			return
		}
		c.JSON(http.StatusOK, item)
	})

	create := r.create
	if create == nil {
		create = r.write
	}
	create.POST(base, func(c *gin.Context) {
		var in P
		if err := c.ShouldBindBodyWith(&in, ginbind.JSON); err != nil {
			abort(c, http.StatusBadRequest, "malformed "+coll.name+" payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if coll.admit != nil {
			in = coll.admit(in, nil)
		}
		if err := coll.validate(0, in); err != nil {
			fail(c, err)
			return
		}
		id := coll.rows.insert(in)
		c.JSON(http.StatusCreated, coll.expand(id, in))
	})

	r.write.PUT(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var in P
		if err := c.ShouldBindBodyWith(&in, ginbind.JSON); err != nil {
			abort(c, http.StatusBadRequest, "malformed "+coll.name+" payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		prev, exists := coll.rows.rows[id]
		if !exists {
			abort(c, http.StatusNotFound, coll.name+" "+itoa(id)+" not found")
			return
		}
		if coll.admit != nil {
			in = coll.admit(in, &prev)
		}
		if err := coll.validate(id, in); err != nil {
			fail(c, err)
			return
		}
		coll.rows.rows[id] = in
		c.JSON(http.StatusOK, coll.expand(id, in))
	})

	r.write.DELETE(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !coll.exists(id) {
			abort(c, http.StatusNotFound, coll.name+" "+itoa(id)+" not found")
			return
		}
		if coll.inUse != nil {
			if by := coll.inUse(id); by != "" {
				abort(c, http.StatusConflict, coll.name+" "+itoa(id)+" is referenced by "+by)
				return
			}
		}
		delete(coll.rows.rows, id)
		c.Status(http.StatusNoContent)
	})
}

// ticketOwner rejects ticket purchases by regular users for passengers
// they did not register.
func (srv *Server) ticketOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin(c) {
			c.Next()
			return
		}
		var in resources.TicketInput
		if err := c.ShouldBindBodyWith(&in, ginbind.JSON); err != nil {
			abort(c, http.StatusBadRequest, "malformed tickets payload")
			return
		}
		uid := claimsOf(c).userID()
		srv.store.mu.RLock()
		owner, ok := srv.store.owners[in.PassengerID]
		srv.store.mu.RUnlock()
		if !ok || owner != uid {
			abort(c, http.StatusUnprocessableEntity, "passenger "+itoa(in.PassengerID)+" does not belong to you")
			return
		}
		c.Next()
	}
}

// GET /schedules/search?from=&to=&date=
func (srv *Server) searchSchedules(c *gin.Context) {
	q, err := binding.Bind[resources.ScheduleSearch](c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	srv.store.mu.RLock()
	defer srv.store.mu.RUnlock()
	c.JSON(http.StatusOK, srv.store.search(q))
}

// GET /schedules/:id/available-seats
func (srv *Server) availableSeats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	srv.store.mu.RLock()
	defer srv.store.mu.RUnlock()
	if !srv.store.schedules.exists(id) {
		abort(c, http.StatusNotFound, "schedules "+itoa(id)+" not found")
		return
	}
	c.JSON(http.StatusOK, srv.store.availableSeats(id))
}

// GET /tickets/returned/count
func (srv *Server) returnedCount(c *gin.Context) {
	f, err := binding.Bind[resources.ReturnedTicketsFilter](c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	srv.store.mu.RLock()
	defer srv.store.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"count": srv.store.returned(f)})
}

// GET /trains/:id/personnel
func (srv *Server) trainPersonnel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	srv.store.mu.RLock()
	defer srv.store.mu.RUnlock()
	if !srv.store.trains.exists(id) {
		abort(c, http.StatusNotFound, "trains "+itoa(id)+" not found")
		return
	}
	c.JSON(http.StatusOK, srv.store.personnel(id))
}

// GET /user/passengers
func (srv *Server) myPassengers(c *gin.Context) {
	uid := claimsOf(c).userID()
	s := srv.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []resources.Passenger{}
	for _, p := range s.passengers.all() {
		if s.owners[p.ID] == uid {
			out = append(out, p)
		}
	}
	c.JSON(http.StatusOK, out)
}

// POST /user/passengers
func (srv *Server) addMyPassenger(c *gin.Context) {
	var in resources.PassengerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, http.StatusBadRequest, "malformed passengers payload")
		return
	}
	s := srv.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.passengers.validate(0, in); err != nil {
		fail(c, err)
		return
	}
	id := s.passengers.rows.insert(in)
	s.owners[id] = claimsOf(c).userID()
	c.JSON(http.StatusCreated, s.passengers.expand(id, in))
}

// GET /user/tickets
func (srv *Server) myTickets(c *gin.Context) {
	uid := claimsOf(c).userID()
	s := srv.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []resources.Ticket{}
	for _, t := range s.tickets.all() {
		if t.Passenger != nil && s.owners[t.Passenger.ID] == uid {
			out = append(out, t)
		}
	}
	c.JSON(http.StatusOK, out)
}
